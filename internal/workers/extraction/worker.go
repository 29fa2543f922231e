// Package extraction runs the queue consumer that mines indicator values
// out of embedded documents and scores the result.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/monitor"
	"github.com/greenarc/esgpipe/internal/queue"
)

// Extractor runs the retrieval-and-LLM chain for one company-year.
type Extractor interface {
	AlreadyProcessed(ctx context.Context, companyID int64, year int) (bool, error)
	ExtractCompanyYear(ctx context.Context, company *models.Company, year int) ([]models.Extraction, error)
}

// ScoreComputer turns stored extractions into a persisted ESG score.
type ScoreComputer interface {
	Compute(ctx context.Context, companyID int64, symbol string, year int) (*models.ESGScore, error)
}

// Worker consumes extraction tasks: resolve the company, run the indicator
// chain, flip the document to EXTRACTED, and compute the score.
type Worker struct {
	ingestion interfaces.IngestionStore
	companies interfaces.CatalogStore
	extractor Extractor
	scorer    ScoreComputer
	collector *monitor.Collector
	logger    arbor.ILogger
}

// NewWorker wires an extraction worker.
func NewWorker(
	ingestion interfaces.IngestionStore,
	companies interfaces.CatalogStore,
	extractor Extractor,
	scorer ScoreComputer,
	collector *monitor.Collector,
	logger arbor.ILogger,
) *Worker {
	return &Worker{
		ingestion: ingestion,
		companies: companies,
		extractor: extractor,
		scorer:    scorer,
		collector: collector,
		logger:    logger,
	}
}

// Run consumes the extraction queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, consumer interfaces.Consumer) error {
	return consumer.Run(ctx, queue.ExtractionTasks, w.Handle)
}

// Handle processes one delivery. The body is `{"object_key": ...}` JSON;
// anything that cannot ever succeed drops with the document marked FAILED,
// anything else dead-letters for redelivery.
func (w *Worker) Handle(ctx context.Context, d interfaces.Delivery) {
	started := time.Now()

	var task queue.ExtractionTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		w.logger.Warn().Err(err).Str("body", string(d.Body)).Msg("Malformed extraction task, dropping")
		w.collector.Record(models.ProcessingMetrics{
			Outcome:   models.OutcomeFailed,
			FaultKind: string(common.FaultPermanentInput),
			Error:     err.Error(),
			Duration:  time.Since(started),
		})
		w.ack(d, "")
		return
	}
	key := task.ObjectKey

	outcome, extracted, err := w.process(ctx, key)

	m := models.ProcessingMetrics{
		ObjectKey:   key,
		Outcome:     outcome,
		Extractions: extracted,
		Duration:    time.Since(started),
	}

	if err == nil {
		w.collector.Record(m)
		w.ack(d, key)
		return
	}

	m.FaultKind = string(common.KindOf(err))
	m.Error = err.Error()
	w.collector.Record(m)

	if common.KindOf(err) == common.FaultPermanentInput {
		w.logger.Warn().Err(err).Str("object_key", key).Msg("Document cannot be extracted, dropping")
		if serr := w.ingestion.SetStatus(ctx, key, models.IngestionFailed, err.Error()); serr != nil {
			w.logger.Warn().Err(serr).Str("object_key", key).Msg("Failed to record document failure")
		}
		w.ack(d, key)
		return
	}

	w.logger.Error().Err(err).Str("object_key", key).Msg("Extraction failed, dead-lettering")
	w.nack(d, key)
}

func (w *Worker) process(ctx context.Context, key string) (string, int, error) {
	symbol, year, _, err := models.ParseObjectKey(key)
	if err != nil {
		return models.OutcomeFailed, 0, common.PermanentInput(err)
	}

	company, err := w.companies.GetBySymbol(ctx, symbol)
	if err != nil {
		return models.OutcomeFailed, 0, err
	}
	if company == nil {
		return models.OutcomeFailed, 0, common.PermanentInput(fmt.Errorf("no catalog company for symbol %s", symbol))
	}

	rec, err := w.ingestion.Get(ctx, key)
	if err != nil {
		return models.OutcomeFailed, 0, err
	}
	if rec != nil && rec.Status == models.IngestionExtracted {
		done, err := w.extractor.AlreadyProcessed(ctx, company.ID, year)
		if err != nil {
			return models.OutcomeFailed, 0, err
		}
		if done {
			// Recompute is idempotent and cheap; it self-heals a run that
			// extracted but died before scoring.
			if _, err := w.scorer.Compute(ctx, company.ID, company.Symbol, year); err != nil {
				return models.OutcomeFailed, 0, err
			}
			w.logger.Info().Str("object_key", key).Msg("Document already extracted, score refreshed")
			return models.OutcomeSkipped, 0, nil
		}
	}

	rows, err := w.extractor.ExtractCompanyYear(ctx, company, year)
	if err != nil {
		return models.OutcomeFailed, 0, err
	}

	if err := w.ingestion.SetStatus(ctx, key, models.IngestionExtracted, ""); err != nil {
		return models.OutcomeFailed, len(rows), err
	}

	score, err := w.scorer.Compute(ctx, company.ID, company.Symbol, year)
	if err != nil {
		return models.OutcomeFailed, len(rows), err
	}

	w.logger.Info().
		Str("object_key", key).
		Str("symbol", company.Symbol).
		Int("year", year).
		Int("extractions", len(rows)).
		Float64("overall", floatOrZero(score.Overall)).
		Msg("Document extracted and scored")
	return models.OutcomeProcessed, len(rows), nil
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func (w *Worker) ack(d interfaces.Delivery, key string) {
	if err := d.Ack(); err != nil {
		w.logger.Warn().Err(err).Str("object_key", key).Msg("Ack failed")
	}
}

func (w *Worker) nack(d interfaces.Delivery, key string) {
	if err := d.Nack(); err != nil {
		w.logger.Warn().Err(err).Str("object_key", key).Msg("Nack failed")
	}
}
