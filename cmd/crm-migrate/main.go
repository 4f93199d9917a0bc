package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"crm-migrate/internal/app"
	"crm-migrate/internal/logging"
	"crm-migrate/internal/pipeline"
)

// main is the entry point for the crm-migrate application.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := app.NewAppRunner()
	err := runner.Run(ctx, os.Args[1:])
	if err == nil {
		return
	}

	// Usage goes to stderr before the error is logged.
	if errors.Is(err, app.ErrUsage) || errors.Is(err, app.ErrConfigNotFound) || errors.Is(err, pipeline.ErrNoInputs) {
		fmt.Fprintln(os.Stderr, "")
		runner.Usage(os.Stderr)
	}

	// Make sure the failure is visible even with logging turned down.
	if logging.GetLevel() < logging.Error {
		logging.SetLevel(logging.Error)
	}
	logging.Logf(logging.Error, "Migration failed: %v", err)
	stop()
	os.Exit(1)
}
