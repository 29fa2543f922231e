// Package embedding runs the queue consumer that turns stored report PDFs
// into searchable chunk vectors.
package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/monitor"
	"github.com/greenarc/esgpipe/internal/queue"
)

// DocumentEmbedder turns extracted pages into storable chunk rows.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, objectKey string, pages []interfaces.PageText) ([]models.ChunkEmbedding, error)
}

// Worker consumes embedding tasks: fetch the PDF, extract and embed its
// text, replace the document's chunk rows, and hand the key to extraction.
type Worker struct {
	objects   interfaces.ObjectStorage
	ingestion interfaces.IngestionStore
	chunks    interfaces.EmbeddingStore
	pdf       interfaces.PDFExtractor
	embedder  DocumentEmbedder
	publisher interfaces.Publisher
	collector *monitor.Collector
	logger    arbor.ILogger
}

// NewWorker wires an embedding worker. collector may not be nil; every
// delivery records an outcome.
func NewWorker(
	objects interfaces.ObjectStorage,
	ingestion interfaces.IngestionStore,
	chunks interfaces.EmbeddingStore,
	pdf interfaces.PDFExtractor,
	embedder DocumentEmbedder,
	publisher interfaces.Publisher,
	collector *monitor.Collector,
	logger arbor.ILogger,
) *Worker {
	return &Worker{
		objects:   objects,
		ingestion: ingestion,
		chunks:    chunks,
		pdf:       pdf,
		embedder:  embedder,
		publisher: publisher,
		collector: collector,
		logger:    logger,
	}
}

// Run consumes the embedding queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, consumer interfaces.Consumer) error {
	return consumer.Run(ctx, queue.EmbeddingTasks, w.Handle)
}

// Handle processes one delivery. Transient and system faults dead-letter
// the message for redelivery tooling; permanent-input faults mark the
// document FAILED and drop it. The message body is the bare object key.
func (w *Worker) Handle(ctx context.Context, d interfaces.Delivery) {
	started := time.Now()
	key := strings.TrimSpace(string(d.Body))

	outcome, chunkCount, err := w.process(ctx, key)

	m := models.ProcessingMetrics{
		ObjectKey: key,
		Outcome:   outcome,
		Chunks:    chunkCount,
		Duration:  time.Since(started),
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
		w.logger.Warn().Err(err).Str("object_key", key).Msg("Document cannot be embedded, dropping")
		if serr := w.ingestion.SetStatus(ctx, key, models.IngestionFailed, err.Error()); serr != nil {
			w.logger.Warn().Err(serr).Str("object_key", key).Msg("Failed to record document failure")
		}
		w.ack(d, key)
		return
	}

	w.logger.Error().Err(err).Str("object_key", key).Msg("Embedding failed, dead-lettering")
	w.nack(d, key)
}

func (w *Worker) process(ctx context.Context, key string) (string, int, error) {
	if _, _, _, err := models.ParseObjectKey(key); err != nil {
		return models.OutcomeFailed, 0, common.PermanentInput(err)
	}

	rec, err := w.ingestion.Get(ctx, key)
	if err != nil {
		return models.OutcomeFailed, 0, err
	}
	if rec != nil {
		switch rec.Status {
		case models.IngestionExtracted:
			w.logger.Info().Str("object_key", key).Msg("Document already extracted, skipping")
			return models.OutcomeSkipped, 0, nil
		case models.IngestionEmbedded:
			// Re-publish so a lost extraction task cannot strand the document.
			if err := w.publishExtraction(ctx, key); err != nil {
				return models.OutcomeFailed, 0, err
			}
			w.logger.Info().Str("object_key", key).Msg("Document already embedded, re-queued for extraction")
			return models.OutcomeSkipped, 0, nil
		}
	}

	body, err := w.fetchObject(ctx, key)
	if err != nil {
		return models.OutcomeFailed, 0, err
	}

	pages, err := w.pdf.ExtractPages(ctx, body)
	if err != nil {
		return models.OutcomeFailed, 0, err
	}

	rows, err := w.embedder.EmbedDocument(ctx, key, pages)
	if err != nil {
		return models.OutcomeFailed, 0, err
	}
	if len(rows) == 0 {
		return models.OutcomeFailed, 0, common.PermanentInput(fmt.Errorf("document %s has no extractable text", key))
	}

	if err := w.chunks.ReplaceDocument(ctx, key, rows); err != nil {
		return models.OutcomeFailed, len(rows), err
	}
	if err := w.ingestion.SetStatus(ctx, key, models.IngestionEmbedded, ""); err != nil {
		return models.OutcomeFailed, len(rows), err
	}
	if err := w.publishExtraction(ctx, key); err != nil {
		return models.OutcomeFailed, len(rows), err
	}

	w.logger.Info().
		Str("object_key", key).
		Int("pages", len(pages)).
		Int("chunks", len(rows)).
		Msg("Document embedded and queued for extraction")
	return models.OutcomeProcessed, len(rows), nil
}

func (w *Worker) publishExtraction(ctx context.Context, key string) error {
	body, err := json.Marshal(queue.ExtractionTask{ObjectKey: key})
	if err != nil {
		return err
	}
	return w.publisher.Publish(ctx, queue.ExtractionTasks, body)
}

func (w *Worker) fetchObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := w.objects.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to read object %s: %w", key, err))
	}
	return body, nil
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
