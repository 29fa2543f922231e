package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

// Sink appends scraped snapshots to the telemetry history. History is
// append-only; the latest snapshot per company is what the API serves.
type Sink struct {
	store  interfaces.TelemetryStore
	logger arbor.ILogger
}

// NewSink creates a telemetry sink writing to the given store.
func NewSink(store interfaces.TelemetryStore, logger arbor.ILogger) *Sink {
	return &Sink{
		store:  store,
		logger: logger,
	}
}

// HandleSnapshot decodes one snapshot message and appends it. Malformed
// bodies are permanent-input failures; storage errors stay transient so the
// broker redelivers.
func (s *Sink) HandleSnapshot(ctx context.Context, body []byte) error {
	var snap models.TelemetrySnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return common.PermanentInput(fmt.Errorf("malformed telemetry snapshot: %w", err))
	}
	if snap.CompanyName == "" {
		return common.PermanentInput(fmt.Errorf("telemetry snapshot has no company name"))
	}
	if snap.ScrapedAt.IsZero() {
		snap.ScrapedAt = time.Now().UTC()
	}

	if err := s.store.Append(ctx, &snap); err != nil {
		return fmt.Errorf("failed to append telemetry snapshot: %w", err)
	}

	s.logger.Debug().
		Str("company", snap.CompanyName).
		Int("stations", len(snap.Readings)).
		Msg("Telemetry snapshot appended")
	return nil
}
