package repositories

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/plbop/internal/models"
	"github.com/desertthunder/plbop/internal/shared"
	"github.com/desertthunder/plbop/internal/tasks"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newRun(user string) *models.FillRun {
	run := models.NewFillRun(0, user, "seed", "dest", false)
	run.SetCounts(12, 13, 3, 2)
	run.SetTracks([]models.Track{
		{ID: "t1", Title: "One", Artist: "A"},
		{ID: "t2", Title: "Two", Artist: "B"},
	})
	run.Complete()
	return run
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "fill_runs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without sequence")
	}
	if _, err := NextSequence(db, "fill_runs; DROP TABLE fill_runs"); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unsafe table name, got %v", err)
	}
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun("alice")

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun("alice")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if got.UserID() != "alice" || got.SeedPlaylistID() != "seed" || got.DestPlaylistID() != "dest" {
			t.Errorf("unexpected identifiers: %s %s %s", got.UserID(), got.SeedPlaylistID(), got.DestPlaylistID())
		}
		if got.Status() != models.RunStatusCompleted {
			t.Errorf("expected completed, got %s", got.Status())
		}
		if got.SeedCount() != 12 || got.RecommendedCount() != 13 || got.RemovedCount() != 3 || got.WrittenCount() != 2 {
			t.Errorf("unexpected counts: %d %d %d %d", got.SeedCount(), got.RecommendedCount(), got.RemovedCount(), got.WrittenCount())
		}
		if got.CompletedAt() == nil {
			t.Error("expected completion time")
		}

		ids := []string{}
		for _, tr := range got.Tracks() {
			ids = append(ids, tr.ID)
		}
		if !slices.Equal(ids, []string{"t1", "t2"}) {
			t.Errorf("expected tracks in order, got %v", ids)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		if _, err := repo.Get("nope"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Create rejects invalid run", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.NewFillRun(0, "alice", "", "dest", false)
		if err := repo.Create(run); err == nil {
			t.Error("expected validation error for missing seed")
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.NewFillRun(0, "alice", "seed", "dest", false)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.SetCounts(5, 5, 1, 0)
		run.SetTracks([]models.Track{{ID: "x"}})
		run.Fail(errors.New("write failed"))
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status() != models.RunStatusFailed || got.ErrorMessage() != "write failed" {
			t.Errorf("unexpected status: %s %q", got.Status(), got.ErrorMessage())
		}
		if len(got.Tracks()) != 1 || got.Tracks()[0].ID != "x" {
			t.Errorf("expected tracks replaced, got %v", got.Tracks())
		}
	})

	t.Run("Update missing", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun("alice")
		run.SetID("nope")
		if err := repo.Update(run); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun("alice")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected deleted run to be hidden, got %v", err)
		}
		if err := repo.Delete(run.ID()); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected second delete to fail, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		for _, user := range []string{"alice", "bob", "alice"} {
			if err := repo.Create(newRun(user)); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}
		failed := models.NewFillRun(0, "alice", "seed", "dest", false)
		failed.Fail(errors.New("boom"))
		if err := repo.Create(failed); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		tc := []struct {
			name     string
			criteria map[string]any
			want     []int
		}{
			{name: "all newest first", criteria: map[string]any{}, want: []int{4, 3, 2, 1}},
			{name: "by user", criteria: map[string]any{"user_id": "alice"}, want: []int{4, 3, 1}},
			{name: "by status", criteria: map[string]any{"status": "failed"}, want: []int{4}},
			{name: "limit", criteria: map[string]any{"limit": 2}, want: []int{4, 3}},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				runs, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list runs: %v", err)
				}
				var got []int
				for _, r := range runs {
					got = append(got, r.Sequence())
				}
				if !slices.Equal(got, tt.want) {
					t.Errorf("expected sequences %v, got %v", tt.want, got)
				}
			})
		}
	})
}

func TestJournal(t *testing.T) {
	ctx := context.Background()

	t.Run("records completed run", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		journal := NewJournal(repo)

		started := time.Now().Add(-time.Minute).Truncate(time.Second)
		result := &tasks.FillResult{
			UserID:      "alice",
			SeedCount:   20,
			Recommended: []models.Track{{ID: "a"}, {ID: "b"}, {ID: "c"}},
			Removed:     []models.Track{{ID: "c"}},
			Tracks:      []models.Track{{ID: "b", Title: "Bee"}, {ID: "a", Title: "Ay"}},
			StartedAt:   started,
		}
		req := tasks.FillRequest{SeedPlaylistID: "seed", DestPlaylistID: "dest"}

		if err := journal.RecordRun(ctx, req, result, nil); err != nil {
			t.Fatalf("failed to record run: %v", err)
		}

		runs, err := repo.List(nil)
		if err != nil || len(runs) != 1 {
			t.Fatalf("expected one run, got %d (%v)", len(runs), err)
		}
		run, err := repo.Get(runs[0].ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if run.Status() != models.RunStatusCompleted || run.WrittenCount() != 2 || run.RemovedCount() != 1 {
			t.Errorf("unexpected run: status=%s written=%d removed=%d", run.Status(), run.WrittenCount(), run.RemovedCount())
		}
		if !run.StartedAt().Equal(started) {
			t.Errorf("expected start %v, got %v", started, run.StartedAt())
		}
		if len(run.Tracks()) != 2 || run.Tracks()[0].Title != "Bee" {
			t.Errorf("unexpected tracks: %v", run.Tracks())
		}
	})

	t.Run("records failed dry run without destination", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		journal := NewJournal(repo)

		req := tasks.FillRequest{SeedPlaylistID: "seed", DryRun: true}
		err := journal.RecordRun(ctx, req, &tasks.FillResult{DryRun: true, StartedAt: time.Now()}, shared.ErrNoSeeds)
		if err != nil {
			t.Fatalf("failed to record run: %v", err)
		}

		runs, err := repo.List(map[string]any{"status": "failed"})
		if err != nil || len(runs) != 1 {
			t.Fatalf("expected one failed run, got %d (%v)", len(runs), err)
		}
		if runs[0].WrittenCount() != 0 || runs[0].ErrorMessage() == "" {
			t.Errorf("unexpected failed run: written=%d msg=%q", runs[0].WrittenCount(), runs[0].ErrorMessage())
		}
	})

	t.Run("nil result is ignored", func(t *testing.T) {
		journal := NewJournal(NewRunRepository(setupTestDB(t)))
		if err := journal.RecordRun(ctx, tasks.FillRequest{}, nil, nil); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	var _ tasks.RunRecorder = (*Journal)(nil)
}
