// Package monitor gives each worker process a small observability surface:
// an in-memory record of recent document outcomes and an HTTP listener
// serving health and metrics from it.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/models"
)

// ringCap bounds the recent-outcome buffer. Old entries roll off; the ring
// is a debugging window, not a metrics store.
const ringCap = 100

// Collector accumulates worker outcomes. Safe for concurrent use.
type Collector struct {
	mu           sync.Mutex
	worker       string
	startedAt    time.Time
	ring         []models.ProcessingMetrics // newest last
	processed    uint64
	skipped      uint64
	failed       uint64
	lastSuccess  time.Time
	lastActivity time.Time
	now          func() time.Time
}

// Snapshot is the JSON shape served by the metrics endpoint.
type Snapshot struct {
	Worker       string                     `json:"worker"`
	StartedAt    time.Time                  `json:"started_at"`
	Uptime       string                     `json:"uptime"`
	Processed    uint64                     `json:"processed"`
	Skipped      uint64                     `json:"skipped"`
	Failed       uint64                     `json:"failed"`
	LastSuccess  *time.Time                 `json:"last_success,omitempty"`
	LastActivity *time.Time                 `json:"last_activity,omitempty"`
	Recent       []models.ProcessingMetrics `json:"recent"`
}

// NewCollector creates a collector for the named worker.
func NewCollector(worker string) *Collector {
	return &Collector{
		worker:    worker,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// Record stores one outcome in the ring and bumps the counters. Skips count
// as successes for staleness: the worker saw the message and handled it.
func (c *Collector) Record(m models.ProcessingMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m.Worker == "" {
		m.Worker = c.worker
	}
	if m.FinishedAt.IsZero() {
		m.FinishedAt = c.now()
	}

	c.ring = append(c.ring, m)
	if len(c.ring) > ringCap {
		c.ring = c.ring[len(c.ring)-ringCap:]
	}

	c.lastActivity = m.FinishedAt
	switch m.Outcome {
	case models.OutcomeProcessed:
		c.processed++
		c.lastSuccess = m.FinishedAt
	case models.OutcomeSkipped:
		c.skipped++
		c.lastSuccess = m.FinishedAt
	case models.OutcomeFailed:
		c.failed++
	}
}

// Snapshot copies the current counters and ring.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Worker:    c.worker,
		StartedAt: c.startedAt,
		Uptime:    c.now().Sub(c.startedAt).Round(time.Second).String(),
		Processed: c.processed,
		Skipped:   c.skipped,
		Failed:    c.failed,
		Recent:    make([]models.ProcessingMetrics, len(c.ring)),
	}
	copy(snap.Recent, c.ring)

	if !c.lastSuccess.IsZero() {
		t := c.lastSuccess
		snap.LastSuccess = &t
	}
	if !c.lastActivity.IsZero() {
		t := c.lastActivity
		snap.LastActivity = &t
	}
	return snap
}

// Health reports the worker status against the staleness threshold. A
// worker that has never succeeded but has failures is degraded; one that
// simply has not seen traffic yet is ok.
func (c *Collector) Health(staleAfter time.Duration) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastSuccess.IsZero() {
		if c.failed > 0 {
			return "degraded", false
		}
		return "ok", true
	}
	if c.now().Sub(c.lastSuccess) > staleAfter {
		return "degraded", false
	}
	return "ok", true
}

// Heartbeat logs a liveness line with current counters until ctx ends.
func (c *Collector) Heartbeat(ctx context.Context, logger arbor.ILogger, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := c.Snapshot()
			logger.Info().
				Str("worker", snap.Worker).
				Int64("processed", int64(snap.Processed)).
				Int64("skipped", int64(snap.Skipped)).
				Int64("failed", int64(snap.Failed)).
				Str("uptime", snap.Uptime).
				Msg("Worker heartbeat")
		}
	}
}
