package main

import (
	"context"

	"github.com/greenarc/esgpipe/internal/app"
)

// runSchedule runs the cron loop that fans dashboard links out to the
// telemetry scrape queue. Blocks until the process is signalled.
func runSchedule(ctx context.Context) error {
	application, err := app.New(ctx, config, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	scheduler, err := application.BuildScheduler(ctx)
	if err != nil {
		return err
	}

	if err := scheduler.Start(); err != nil {
		return err
	}

	logger.Info().
		Str("schedule", config.Telemetry.Schedule).
		Msg("Scheduler ready - Press Ctrl+C to stop")

	<-ctx.Done()

	logger.Info().Msg("Stopping scheduler")
	scheduler.Stop()
	return nil
}
