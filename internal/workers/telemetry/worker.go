// Package telemetry runs the queue consumers for live dashboard scraping:
// one worker renders dashboards into snapshots, another appends snapshots
// to history.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/monitor"
	"github.com/greenarc/esgpipe/internal/queue"
)

// SnapshotHandler appends one encoded snapshot to history.
type SnapshotHandler interface {
	HandleSnapshot(ctx context.Context, body []byte) error
}

// ScrapeWorker consumes dashboard links, scrapes each one, and publishes
// the snapshot. Telemetry is lossy by contract: every delivery acks, a
// failed scrape just means no snapshot this cycle.
type ScrapeWorker struct {
	scraper   interfaces.DashboardScraper
	publisher interfaces.Publisher
	collector *monitor.Collector
	logger    arbor.ILogger
}

// NewScrapeWorker wires a dashboard scrape worker.
func NewScrapeWorker(scraper interfaces.DashboardScraper, publisher interfaces.Publisher, collector *monitor.Collector, logger arbor.ILogger) *ScrapeWorker {
	return &ScrapeWorker{
		scraper:   scraper,
		publisher: publisher,
		collector: collector,
		logger:    logger,
	}
}

// Run consumes the dashboard link queue until ctx is cancelled.
func (w *ScrapeWorker) Run(ctx context.Context, consumer interfaces.Consumer) error {
	return consumer.Run(ctx, queue.DashboardLinks, w.Handle)
}

// Handle scrapes one dashboard link and publishes its snapshot.
func (w *ScrapeWorker) Handle(ctx context.Context, d interfaces.Delivery) {
	started := time.Now()
	defer w.ack(d)

	var link models.LiveLink
	if err := json.Unmarshal(d.Body, &link); err != nil {
		w.logger.Warn().Err(err).Str("body", string(d.Body)).Msg("Malformed dashboard link, dropping")
		w.record(started, "", models.OutcomeFailed, err)
		return
	}

	snapshot, err := w.scraper.Scrape(ctx, link)
	if err != nil {
		w.logger.Warn().Err(err).
			Str("company", link.CompanyName).
			Str("url", link.URL).
			Msg("Dashboard scrape failed")
		w.record(started, link.CompanyName, models.OutcomeFailed, err)
		return
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		w.record(started, link.CompanyName, models.OutcomeFailed, err)
		return
	}
	if err := w.publisher.Publish(ctx, queue.PollutionData, body); err != nil {
		w.logger.Warn().Err(err).Str("company", link.CompanyName).Msg("Snapshot publish failed")
		w.record(started, link.CompanyName, models.OutcomeFailed, err)
		return
	}

	w.logger.Info().
		Str("company", link.CompanyName).
		Int("stations", len(snapshot.Readings)).
		Msg("Dashboard snapshot published")
	w.record(started, link.CompanyName, models.OutcomeProcessed, nil)
}

func (w *ScrapeWorker) record(started time.Time, company, outcome string, err error) {
	m := models.ProcessingMetrics{
		ObjectKey: company,
		Outcome:   outcome,
		Duration:  time.Since(started),
	}
	if err != nil {
		m.FaultKind = string(common.KindOf(err))
		m.Error = err.Error()
	}
	w.collector.Record(m)
}

func (w *ScrapeWorker) ack(d interfaces.Delivery) {
	if err := d.Ack(); err != nil {
		w.logger.Warn().Err(err).Msg("Ack failed")
	}
}

// SinkWorker consumes snapshots and appends them to the history store.
type SinkWorker struct {
	sink      SnapshotHandler
	collector *monitor.Collector
	logger    arbor.ILogger
}

// NewSinkWorker wires a telemetry sink worker.
func NewSinkWorker(sink SnapshotHandler, collector *monitor.Collector, logger arbor.ILogger) *SinkWorker {
	return &SinkWorker{
		sink:      sink,
		collector: collector,
		logger:    logger,
	}
}

// Run consumes the snapshot queue until ctx is cancelled.
func (w *SinkWorker) Run(ctx context.Context, consumer interfaces.Consumer) error {
	return consumer.Run(ctx, queue.PollutionData, w.Handle)
}

// Handle appends one snapshot. Malformed bodies drop; a dead store
// dead-letters so history can be replayed once it recovers.
func (w *SinkWorker) Handle(ctx context.Context, d interfaces.Delivery) {
	started := time.Now()

	err := w.sink.HandleSnapshot(ctx, d.Body)
	m := models.ProcessingMetrics{Duration: time.Since(started)}

	switch {
	case err == nil:
		m.Outcome = models.OutcomeProcessed
		w.collector.Record(m)
		if aerr := d.Ack(); aerr != nil {
			w.logger.Warn().Err(aerr).Msg("Ack failed")
		}
	case common.KindOf(err) == common.FaultPermanentInput:
		w.logger.Warn().Err(err).Msg("Malformed snapshot, dropping")
		m.Outcome = models.OutcomeFailed
		m.FaultKind = string(common.FaultPermanentInput)
		m.Error = err.Error()
		w.collector.Record(m)
		if aerr := d.Ack(); aerr != nil {
			w.logger.Warn().Err(aerr).Msg("Ack failed")
		}
	default:
		w.logger.Error().Err(err).Msg("Snapshot append failed, dead-lettering")
		m.Outcome = models.OutcomeFailed
		m.FaultKind = string(common.KindOf(err))
		m.Error = err.Error()
		w.collector.Record(m)
		if nerr := d.Nack(); nerr != nil {
			w.logger.Warn().Err(nerr).Msg("Nack failed")
		}
	}
}
