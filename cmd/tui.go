package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plbop/internal/tasks"
	"github.com/desertthunder/plbop/internal/ui"
)

// tuiLogPath receives log output while the terminal UI is running.
const tuiLogPath = "./tmp/plbop-tui.log"

// runInteractive follows the run in the terminal UI and returns once the user quits.
func (r *Runner) runInteractive(ctx context.Context, run ui.RunFunc) (*tasks.FillResult, error) {
	result, err := ui.Run(ctx, run)
	if err != nil {
		return result, fmt.Errorf("fill failed: %w", err)
	}
	return result, nil
}
