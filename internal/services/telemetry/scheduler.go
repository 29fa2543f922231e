package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/queue"
)

// Scheduler fans registered dashboard links out to the scrape queue on a
// cron cadence. Scraper workers pick the links up from there, so one slow
// dashboard never delays the next cycle.
type Scheduler struct {
	links     interfaces.LiveLinkStore
	publisher interfaces.Publisher
	cron      *cron.Cron
	cfg       common.TelemetryConfig
	logger    arbor.ILogger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a telemetry scheduler. Call Start to begin cycles.
func NewScheduler(links interfaces.LiveLinkStore, publisher interfaces.Publisher, cfg common.TelemetryConfig, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		links:     links,
		publisher: publisher,
		cron:      cron.New(),
		cfg:       cfg,
		logger:    logger,
	}
}

// Start registers the fan-out job and starts the cron loop. Calling Start on
// a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	schedule := s.cfg.Schedule
	if schedule == "" {
		schedule = "@every 5m"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.FanOut(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("Dashboard fan-out failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add telemetry cron job: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", schedule).Msg("Telemetry scheduler started")
	return nil
}

// Stop halts the cron loop and waits for an in-flight fan-out to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info().Msg("Telemetry scheduler stopped")
}

// FanOut publishes every registered dashboard link to the scrape queue. Links
// are isolated from each other: a failed publish is logged and the cycle
// moves on. Only failing to list the links aborts the cycle.
func (s *Scheduler) FanOut(ctx context.Context) error {
	links, err := s.links.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list dashboard links: %w", err)
	}

	published := 0
	for i := range links {
		body, err := json.Marshal(links[i])
		if err != nil {
			s.logger.Warn().Err(err).
				Str("company", links[i].CompanyName).
				Msg("Dashboard link marshal failed")
			continue
		}
		if err := s.publisher.Publish(ctx, queue.DashboardLinks, body); err != nil {
			s.logger.Warn().Err(err).
				Str("company", links[i].CompanyName).
				Msg("Dashboard link publish failed")
			continue
		}
		published++
	}

	s.logger.Info().
		Int("links", len(links)).
		Int("published", published).
		Msg("Dashboard links fanned out")
	return nil
}
