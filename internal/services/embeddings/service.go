package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

const defaultBatchSize = 32

// Service embeds document chunks in model-batch-sized API calls and shapes
// them into storable rows.
type Service struct {
	llm       interfaces.LLMService
	chunker   *Chunker
	batchSize int
	logger    arbor.ILogger
}

func NewService(llm interfaces.LLMService, cfg common.EmbeddingConfig, logger arbor.ILogger) *Service {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		llm:       llm,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		batchSize: batchSize,
		logger:    logger,
	}
}

// EmbedDocument chunks the extracted pages and embeds every chunk, returning
// rows ready for a single-transaction replace. An empty result means the
// document had no usable text.
func (s *Service) EmbedDocument(ctx context.Context, objectKey string, pages []interfaces.PageText) ([]models.ChunkEmbedding, error) {
	symbol, year, _, err := models.ParseObjectKey(objectKey)
	if err != nil {
		return nil, common.PermanentInput(err)
	}

	chunks := s.chunker.SplitPages(pages)
	if len(chunks) == 0 {
		return nil, nil
	}

	started := time.Now()
	vectors, err := s.EmbedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	rows := make([]models.ChunkEmbedding, len(chunks))
	for i, chunk := range chunks {
		rows[i] = models.ChunkEmbedding{
			ObjectKey: objectKey,
			Symbol:    symbol,
			Year:      year,
			Page:      chunk.Page,
			Index:     chunk.Index,
			Text:      chunk.Text,
			Embedding: vectors[i],
		}
	}

	s.logger.Info().
		Str("object_key", objectKey).
		Int("pages", len(pages)).
		Int("chunks", len(chunks)).
		Dur("duration", time.Since(started)).
		Msg("Document embedded")

	return rows, nil
}

// EmbedChunks returns one vector per chunk, calling the model in batches.
func (s *Service) EmbedChunks(ctx context.Context, chunks []models.DocumentChunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-start)
		for i, chunk := range chunks[start:end] {
			texts[i] = chunk.Text
		}

		batch, err := s.llm.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d..%d: %w", start, end-1, err)
		}

		copy(vectors[start:], batch)

		s.logger.Debug().
			Int("batch_start", start).
			Int("batch_size", len(texts)).
			Msg("Embedded chunk batch")
	}

	return vectors, nil
}

// EmbedQuery embeds one retrieval query string.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.llm.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
