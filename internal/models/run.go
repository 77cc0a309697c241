package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a [FillRun].
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// FillRun is the journal entry for one pass of the fill pipeline.
type FillRun struct {
	id               string
	sequence         int
	userID           string
	seedPlaylistID   string
	destPlaylistID   string
	status           RunStatus
	dryRun           bool
	seedCount        int
	recommendedCount int
	removedCount     int
	writtenCount     int
	errorMessage     string
	tracks           []Track
	startedAt        time.Time
	completedAt      *time.Time
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        *time.Time
}

// NewFillRun creates a running [FillRun] started now.
func NewFillRun(sequence int, userID, seedPlaylistID, destPlaylistID string, dryRun bool) *FillRun {
	now := time.Now()
	return &FillRun{
		sequence:       sequence,
		userID:         userID,
		seedPlaylistID: seedPlaylistID,
		destPlaylistID: destPlaylistID,
		status:         RunStatusRunning,
		dryRun:         dryRun,
		startedAt:      now,
		createdAt:      now,
		updatedAt:      now,
	}
}

func (r *FillRun) ID() string               { return r.id }
func (r *FillRun) Sequence() int            { return r.sequence }
func (r *FillRun) UserID() string           { return r.userID }
func (r *FillRun) SeedPlaylistID() string   { return r.seedPlaylistID }
func (r *FillRun) DestPlaylistID() string   { return r.destPlaylistID }
func (r *FillRun) Status() RunStatus        { return r.status }
func (r *FillRun) DryRun() bool             { return r.dryRun }
func (r *FillRun) SeedCount() int           { return r.seedCount }
func (r *FillRun) RecommendedCount() int    { return r.recommendedCount }
func (r *FillRun) RemovedCount() int        { return r.removedCount }
func (r *FillRun) WrittenCount() int        { return r.writtenCount }
func (r *FillRun) ErrorMessage() string     { return r.errorMessage }
func (r *FillRun) Tracks() []Track          { return r.tracks }
func (r *FillRun) StartedAt() time.Time     { return r.startedAt }
func (r *FillRun) CompletedAt() *time.Time  { return r.completedAt }
func (r *FillRun) CreatedAt() time.Time     { return r.createdAt }
func (r *FillRun) UpdatedAt() time.Time     { return r.updatedAt }
func (r *FillRun) DeletedAt() *time.Time    { return r.deletedAt }
func (r *FillRun) SetID(id string)          { r.id = id }
func (r *FillRun) SetSequence(seq int)      { r.sequence = seq }
func (r *FillRun) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *FillRun) SetDeletedAt(t *time.Time) {
	r.deletedAt = t
}

// SetTimes restores timestamps read back from storage.
func (r *FillRun) SetTimes(started, created, updated time.Time, completed *time.Time) {
	r.startedAt = started
	r.createdAt = created
	r.updatedAt = updated
	r.completedAt = completed
}

// SetCounts records the pipeline counters.
func (r *FillRun) SetCounts(seeds, recommended, removed, written int) {
	r.seedCount = seeds
	r.recommendedCount = recommended
	r.removedCount = removed
	r.writtenCount = written
}

// SetTracks records the tracks written to the destination playlist.
func (r *FillRun) SetTracks(tracks []Track) {
	r.tracks = tracks
}

// SetStatus restores a status read back from storage.
func (r *FillRun) SetStatus(status RunStatus, errorMessage string) {
	r.status = status
	r.errorMessage = errorMessage
}

// Complete marks the run as finished successfully.
func (r *FillRun) Complete() {
	r.finish(RunStatusCompleted, "")
}

// Fail marks the run as failed with err.
func (r *FillRun) Fail(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.finish(RunStatusFailed, msg)
}

func (r *FillRun) finish(status RunStatus, msg string) {
	now := time.Now()
	r.status = status
	r.errorMessage = msg
	r.completedAt = &now
	r.updatedAt = now
}

// Validate checks required identifiers and counter consistency.
//
// The user may be empty when a run failed before the account was resolved.
func (r *FillRun) Validate() error {
	switch {
	case r.id == "":
		return fmt.Errorf("run id is required")
	case r.seedPlaylistID == "":
		return fmt.Errorf("seed playlist id is required")
	case r.destPlaylistID == "" && !r.dryRun:
		return fmt.Errorf("destination playlist id is required")
	}

	switch r.status {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
	default:
		return fmt.Errorf("invalid status: %q", r.status)
	}

	if r.removedCount > r.recommendedCount {
		return fmt.Errorf("removed count %d exceeds recommended count %d", r.removedCount, r.recommendedCount)
	}
	return nil
}
