package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plbop/internal/shared"
)

// exitInterrupted is the conventional status for a process stopped by SIGINT.
const exitInterrupted = 130

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := runner.app().Run(ctx, os.Args); err != nil {
		stop()
		if code, ok := interrupted(logger, err); ok {
			os.Exit(code)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// interrupted reports whether err comes from a run the user stopped with Ctrl-C or by quitting the TUI.
func interrupted(logger *log.Logger, err error) (int, bool) {
	if !errors.Is(err, context.Canceled) {
		return 0, false
	}
	logger.Warn("run cancelled")
	return exitInterrupted, true
}
