package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plbop/internal/formatter"
	"github.com/desertthunder/plbop/internal/repositories"
	"github.com/urfave/cli/v3"
)

// History prints the most recent journaled runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(map[string]any{"limit": cmd.Int("limit")})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out, err := formatter.RunsToJSON(runs)
		if err != nil {
			return fmt.Errorf("failed to marshal runs: %w", err)
		}
		return r.writePlain("%s\n", out)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded in %s\n", r.config.Database.Path)
	}

	out, err := formatter.RunsToText(runs)
	if err != nil {
		return err
	}
	return r.writePlain("%s", out)
}
