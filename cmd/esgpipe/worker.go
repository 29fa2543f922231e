package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/greenarc/esgpipe/internal/app"
	"github.com/greenarc/esgpipe/internal/monitor"
)

// drainWindow bounds how long a stopping worker waits for its in-flight
// delivery before closing connections underneath it.
const drainWindow = 30 * time.Second

// runWorker boots one of the queue consumers plus its health listener and
// blocks until the process is signalled.
func runWorker(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("worker requires a kind: embed, extract, or telemetry")
	}
	kind := args[0]

	application, err := app.New(ctx, config, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	collector := monitor.NewCollector(kind)

	var consumers []func(ctx context.Context) error
	switch kind {
	case "embed":
		worker, err := application.BuildEmbeddingWorker(ctx, collector)
		if err != nil {
			return err
		}
		consumers = append(consumers, func(ctx context.Context) error {
			return worker.Run(ctx, application.Consumer)
		})
	case "extract":
		worker, err := application.BuildExtractionWorker(ctx, collector)
		if err != nil {
			return err
		}
		consumers = append(consumers, func(ctx context.Context) error {
			return worker.Run(ctx, application.Consumer)
		})
	case "telemetry":
		scrape, sink, err := application.BuildTelemetryWorkers(ctx, collector)
		if err != nil {
			return err
		}
		consumers = append(consumers,
			func(ctx context.Context) error {
				return scrape.Run(ctx, application.Consumer)
			},
			func(ctx context.Context) error {
				return sink.Run(ctx, application.Consumer)
			},
		)
	default:
		return fmt.Errorf("unknown worker kind %q", kind)
	}

	mon := monitor.NewServer(collector, config.Monitor, logger)
	go func() {
		if err := mon.Start(); err != nil {
			logger.Error().Err(err).Msg("Monitor listener failed")
		}
	}()
	go collector.Heartbeat(ctx, logger, time.Minute)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, consume := range consumers {
		wg.Add(1)
		go func(consume func(context.Context) error) {
			defer wg.Done()
			if err := consume(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Str("worker", kind).Msg("Consumer stopped unexpectedly")
			}
		}(consume)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	logger.Info().Str("worker", kind).Msg("Worker ready - Press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Str("worker", kind).Msg("Signal received, draining in-flight work")

	// The consumer finishes its current delivery before returning; anything
	// still unsettled after the window is redelivered by the broker.
	select {
	case <-done:
	case <-time.After(drainWindow):
		logger.Warn().Str("worker", kind).Msg("Drain window expired, closing anyway")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mon.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Monitor shutdown failed")
	}

	return nil
}
