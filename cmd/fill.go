package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/plbop/internal/formatter"
	"github.com/desertthunder/plbop/internal/repositories"
	"github.com/desertthunder/plbop/internal/services"
	"github.com/desertthunder/plbop/internal/shared"
	"github.com/desertthunder/plbop/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Fill runs the pipeline: seed playlist → recommendations → drop known tracks → overwrite destination.
func (r *Runner) Fill(ctx context.Context, cmd *cli.Command) error {
	req, err := r.fillRequest(cmd)
	if err != nil {
		return err
	}

	outputPath := cmd.String("output")
	var format formatter.Format
	if outputPath != "" || cmd.String("format") != "" {
		name := cmd.String("format")
		if name == "" {
			name = string(formatter.FormatText)
		}
		if format, err = formatter.ParseFormat(name); err != nil {
			return err
		}
	}

	interactive := cmd.Bool("interactive")
	if interactive {
		// the terminal belongs to the UI until it exits
		fileLogger, err := shared.NewFileLogger(tuiLogPath)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		shared.SetLogLevel(fileLogger, r.logger.GetLevel())
		r.SetLogger(fileLogger)
	}

	if err := r.authenticate(ctx); err != nil {
		return err
	}

	engineOpts := []tasks.EngineOption{tasks.WithLogger(r.logger)}
	if r.rng != nil {
		engineOpts = append(engineOpts, tasks.WithRand(r.rng))
	}

	journal, closeJournal := r.openJournal()
	defer closeJournal()
	if journal != nil {
		engineOpts = append(engineOpts, tasks.WithRecorder(journal))
	}

	engine := tasks.NewFillEngine(r.spotify, r.config.Recommend, engineOpts...)
	run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.FillResult, error) {
		return engine.Run(ctx, progress, req)
	}

	r.logger.Info("starting fill", "seed", req.SeedPlaylistID, "dest", req.DestPlaylistID, "user", req.UserID, "dry_run", req.DryRun)

	var result *tasks.FillResult
	if interactive {
		result, err = r.runInteractive(ctx, run)
	} else {
		err = r.withReauth(ctx, func() error {
			var runErr error
			result, runErr = r.runPlain(ctx, run)
			return runErr
		})
	}
	if err != nil {
		return err
	}

	if format != "" {
		path, err := formatter.WriteExport(result, format, outputPath)
		if err != nil {
			return err
		}
		r.logger.Info("exported tracks", "path", path, "format", format)
		r.writePlain("✓ Exported %d tracks to %s\n", len(result.Tracks), path)
	}

	if result.DryRun {
		return r.writePlain("Dry run complete, %s was not modified\n", destinationLabel(result))
	}
	return r.writePlain("Successfully added to playlist for user: %s\n", result.UserID)
}

// fillRequest assembles the request from flags and config. Playlist arguments may be IDs, URLs or URIs.
func (r *Runner) fillRequest(cmd *cli.Command) (tasks.FillRequest, error) {
	req := tasks.FillRequest{
		UserID: cmd.String("user"),
		DryRun: cmd.Bool("dry-run"),
	}
	if req.UserID == "" {
		req.UserID = r.config.Spotify.User
	}

	seed, err := services.ParsePlaylistID(cmd.String("playlist"))
	if err != nil {
		return req, err
	}
	req.SeedPlaylistID = seed

	dest := cmd.String("dest")
	if dest == "" {
		dest = r.config.Spotify.Destination
	}
	if dest != "" {
		if req.DestPlaylistID, err = services.ParsePlaylistID(dest); err != nil {
			return req, err
		}
	}

	if req.DestPlaylistID == "" && !req.DryRun {
		return req, fmt.Errorf("%w: no destination playlist, set spotify.destination, pl_add or --dest", shared.ErrMissingArgument)
	}
	return req, nil
}

// runPlain prints progress lines while the engine runs.
func (r *Runner) runPlain(ctx context.Context, run func(context.Context, chan<- tasks.ProgressUpdate) (*tasks.FillResult, error)) (*tasks.FillResult, error) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSeeds:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Recommend:
				r.writePlain("   %s\n", update.Message)
			case tasks.ScanKnown:
				r.writePlain("🔍 %s\n", update.Message)
			case tasks.Shuffle:
				r.writePlain("🔀 %s\n", update.Message)
			case tasks.Replace:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := run(ctx, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return result, err
	}

	r.writePlain("\n")
	r.writePlainHeader("Fill Complete!")
	if result.SeedPlaylist != nil {
		r.writePlain("Seed: %s (%d tracks)\n", result.SeedPlaylist.Name, result.SeedCount)
	}
	r.writePlain("Destination: %s\n", destinationLabel(result))
	r.writePlain("Recommended: %d (%d already in your playlists)\n", len(result.Recommended), len(result.Removed))
	r.writePlain("Selected: %d\n\n", len(result.Tracks))
	for i, track := range result.Tracks {
		r.writePlain("  %d. %s - %s\n", i+1, track.Artist, track.Title)
	}
	r.writePlain("\n")

	return result, nil
}

func destinationLabel(result *tasks.FillResult) string {
	if result.DestPlaylistID == "" {
		return "(none)"
	}
	return result.DestPlaylistID
}

// openDatabase opens the journal database and brings its schema up to date.
func (r *Runner) openDatabase() (*sql.DB, error) {
	path := r.config.Database.Path
	if path == "" {
		return nil, fmt.Errorf("%w: database.path is not set", shared.ErrMissingConfig)
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// openJournal returns the run journal, or nil when it is disabled or cannot be opened.
// A broken journal never stops a run.
func (r *Runner) openJournal() (*repositories.Journal, func()) {
	if r.config.Database.Path == "" {
		return nil, func() {}
	}

	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("run journal disabled", "error", err)
		return nil, func() {}
	}

	return repositories.NewJournal(repositories.NewRunRepository(db)), func() {
		if err := db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
	}
}
