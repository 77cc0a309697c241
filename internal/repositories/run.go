package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plbop/internal/models"
	"github.com/desertthunder/plbop/internal/shared"
)

// ErrRunNotFound is returned when a run does not exist or was deleted.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, sequence, user_id, seed_playlist_id, dest_playlist_id, status, dry_run,
	seed_count, recommended_count, removed_count, written_count, error_message,
	started_at, completed_at, created_at, updated_at, deleted_at`

// RunRepository implements models.Repository[*models.FillRun] for the run journal.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run and its tracks with a generated ID and sequence
func (r *RunRepository) Create(run *models.FillRun) error {
	sequence, err := NextSequence(r.db, "fill_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO fill_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		run.ID(),
		run.Sequence(),
		run.UserID(),
		run.SeedPlaylistID(),
		run.DestPlaylistID(),
		string(run.Status()),
		run.DryRun(),
		run.SeedCount(),
		run.RecommendedCount(),
		run.RemovedCount(),
		run.WrittenCount(),
		nullString(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
		run.DeletedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertTracks(tx, run.ID(), run.Tracks()); err != nil {
		return err
	}

	return tx.Commit()
}

// Get retrieves a run and its tracks by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.FillRun, error) {
	query := `SELECT ` + runColumns + ` FROM fill_runs WHERE id = ? AND deleted_at IS NULL`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	tracks, err := r.Tracks(id)
	if err != nil {
		return nil, err
	}
	run.SetTracks(tracks)
	return run, nil
}

// Update rewrites the run's status, counters and tracks
func (r *RunRepository) Update(run *models.FillRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE fill_runs
		SET user_id = ?, status = ?, seed_count = ?, recommended_count = ?, removed_count = ?,
			written_count = ?, error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := tx.Exec(query,
		run.UserID(),
		string(run.Status()),
		run.SeedCount(),
		run.RecommendedCount(),
		run.RemovedCount(),
		run.WrittenCount(),
		nullString(run.ErrorMessage()),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID())
	}

	if _, err := tx.Exec(`DELETE FROM fill_run_tracks WHERE run_id = ?`, run.ID()); err != nil {
		return fmt.Errorf("failed to clear run tracks: %w", err)
	}
	if err := insertTracks(tx, run.ID(), run.Tracks()); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `
		UPDATE fill_runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return nil
}

// List retrieves runs newest first. Supported criteria: "user_id", "status", "seed_playlist_id" and "limit".
//
// Tracks are not loaded; use [RunRepository.Tracks] for a single run.
func (r *RunRepository) List(criteria map[string]any) ([]*models.FillRun, error) {
	query := `SELECT ` + runColumns + ` FROM fill_runs WHERE deleted_at IS NULL`
	args := []any{}

	for _, key := range []string{"user_id", "status", "seed_playlist_id"} {
		if v, ok := criteria[key].(string); ok && v != "" {
			query += " AND " + key + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.FillRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Tracks returns the tracks recorded for a run in playlist order
func (r *RunRepository) Tracks(runID string) ([]models.Track, error) {
	rows, err := r.db.Query(`
		SELECT track_id, title, artist
		FROM fill_run_tracks
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist); err != nil {
			return nil, fmt.Errorf("failed to scan run track: %w", err)
		}
		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

func insertTracks(tx *sql.Tx, runID string, tracks []models.Track) error {
	if len(tracks) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`INSERT INTO fill_run_tracks (run_id, position, track_id, title, artist) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tracks {
		if _, err := stmt.Exec(runID, i, t.ID, t.Title, t.Artist); err != nil {
			return fmt.Errorf("failed to insert run track: %w", err)
		}
	}
	return nil
}

// rowScanner is satisfied by both [sql.Row] and [sql.Rows]
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.FillRun, error) {
	var (
		id, userID, seedID, destID, status string
		sequence                           int
		dryRun                             bool
		seeds, recommended, removed        int
		written                            int
		errorMessage                       sql.NullString
		startedAt, createdAt, updatedAt    time.Time
		completedAt, deletedAt             sql.NullTime
	)

	err := row.Scan(&id, &sequence, &userID, &seedID, &destID, &status, &dryRun,
		&seeds, &recommended, &removed, &written, &errorMessage,
		&startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewFillRun(sequence, userID, seedID, destID, dryRun)
	run.SetID(id)
	run.SetStatus(models.RunStatus(status), errorMessage.String)
	run.SetCounts(seeds, recommended, removed, written)

	var completed *time.Time
	if completedAt.Valid {
		completed = &completedAt.Time
	}
	run.SetTimes(startedAt, createdAt, updatedAt, completed)

	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
