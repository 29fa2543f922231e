package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

// EmbeddingStore persists chunk vectors and serves filtered kNN retrieval.
type EmbeddingStore struct {
	pool   *pgxpool.Pool
	dims   int
	logger arbor.ILogger
}

var _ interfaces.EmbeddingStore = (*EmbeddingStore)(nil)

func NewEmbeddingStore(pool *pgxpool.Pool, dims int, logger arbor.ILogger) *EmbeddingStore {
	return &EmbeddingStore{pool: pool, dims: dims, logger: logger}
}

// ReplaceDocument swaps a document's chunk rows atomically: prior rows for
// the key are deleted and the new set inserted in the same transaction, so
// retrieval never observes a half-embedded report.
func (s *EmbeddingStore) ReplaceDocument(ctx context.Context, objectKey string, chunks []models.ChunkEmbedding) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return common.Transient(fmt.Errorf("failed to begin embedding transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM document_embeddings WHERE object_key = $1`, objectKey); err != nil {
		return common.Transient(fmt.Errorf("failed to clear prior embeddings for %s: %w", objectKey, err))
	}

	if len(chunks) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"document_embeddings"},
			[]string{"object_key", "symbol", "year", "page", "chunk_index", "chunk_text", "embedding"},
			pgx.CopyFromSlice(len(chunks), func(i int) ([]interface{}, error) {
				c := chunks[i]
				return []interface{}{
					c.ObjectKey, c.Symbol, c.Year, c.Page, c.Index, c.Text,
					pgvector.NewVector(c.Embedding),
				}, nil
			}))
		if err != nil {
			return common.Transient(fmt.Errorf("failed to bulk insert %d embeddings for %s: %w", len(chunks), objectKey, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return common.Transient(fmt.Errorf("failed to commit embeddings for %s: %w", objectKey, err))
	}

	s.logger.Debug().
		Str("object_key", objectKey).
		Int("chunks", len(chunks)).
		Msg("Document embeddings replaced")

	return nil
}

// Search runs cosine kNN over one company-year's chunks. The distance
// expression mirrors the index expression so the planner can use it.
func (s *EmbeddingStore) Search(ctx context.Context, symbol string, year int, query []float32, topK int) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = 10
	}

	distance := "embedding <=> $3"
	if s.dims > 2000 {
		distance = fmt.Sprintf("embedding::halfvec(%d) <=> $3::halfvec(%d)", s.dims, s.dims)
	}

	sql := fmt.Sprintf(`
		SELECT id, object_key, symbol, year, page, chunk_index, chunk_text, %s AS distance
		FROM document_embeddings
		WHERE symbol = $1 AND year = $2
		ORDER BY %s
		LIMIT $4`, distance, distance)

	rows, err := s.pool.Query(ctx, sql, symbol, year, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("embedding search failed for %s/%d: %w", symbol, year, err))
	}
	defer rows.Close()

	var hits []models.ScoredChunk
	for rows.Next() {
		var h models.ScoredChunk
		if err := rows.Scan(&h.ID, &h.ObjectKey, &h.Symbol, &h.Year, &h.Page, &h.Index, &h.Text, &h.Distance); err != nil {
			return nil, common.Transient(fmt.Errorf("failed to scan search hit: %w", err))
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *EmbeddingStore) CountForDocument(ctx context.Context, objectKey string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM document_embeddings WHERE object_key = $1`, objectKey).Scan(&count)
	if err != nil {
		return 0, common.Transient(fmt.Errorf("failed to count embeddings for %s: %w", objectKey, err))
	}
	return count, nil
}
