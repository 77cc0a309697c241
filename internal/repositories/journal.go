package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/plbop/internal/models"
	"github.com/desertthunder/plbop/internal/tasks"
)

// Journal implements tasks.RunRecorder using RunRepository.
//
// Every finished run becomes one fill_runs row. Nothing in the pipeline reads it back.
type Journal struct {
	repo *RunRepository
}

// NewJournal creates a new Journal with the given repository
func NewJournal(repo *RunRepository) *Journal {
	return &Journal{repo: repo}
}

// RecordRun stores the outcome of a run. runErr marks the run as failed.
func (j *Journal) RecordRun(ctx context.Context, req tasks.FillRequest, result *tasks.FillResult, runErr error) error {
	if result == nil {
		return nil
	}

	userID := result.UserID
	if userID == "" {
		userID = req.UserID
	}

	run := models.NewFillRun(0, userID, req.SeedPlaylistID, req.DestPlaylistID, req.DryRun)

	written := 0
	if runErr == nil && !req.DryRun {
		written = len(result.Tracks)
	}
	run.SetCounts(result.SeedCount, len(result.Recommended), len(result.Removed), written)
	run.SetTracks(result.Tracks)

	if runErr != nil {
		run.Fail(runErr)
	} else {
		run.Complete()
	}

	if !result.StartedAt.IsZero() {
		run.SetTimes(result.StartedAt, run.CreatedAt(), run.UpdatedAt(), run.CompletedAt())
	}

	if err := j.repo.Create(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}
