package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

// IngestionStore tracks report documents through the pipeline. The status
// column is the cross-worker idempotency gate.
type IngestionStore struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

var _ interfaces.IngestionStore = (*IngestionStore)(nil)

func NewIngestionStore(pool *pgxpool.Pool, logger arbor.ILogger) *IngestionStore {
	return &IngestionStore{pool: pool, logger: logger}
}

func (s *IngestionStore) Upsert(ctx context.Context, rec *models.IngestionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingestion_metadata
			(object_key, symbol, year, document_type, source_url, content_hash, size_bytes, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (object_key) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			content_hash = EXCLUDED.content_hash,
			size_bytes = EXCLUDED.size_bytes,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			updated_at = now()`,
		rec.ObjectKey, rec.Symbol, rec.Year, rec.DocumentType,
		rec.SourceURL, rec.ContentHash, rec.SizeBytes, rec.Status, rec.Error)
	if err != nil {
		return common.Transient(fmt.Errorf("failed to upsert ingestion record %s: %w", rec.ObjectKey, err))
	}
	return nil
}

func (s *IngestionStore) Get(ctx context.Context, objectKey string) (*models.IngestionRecord, error) {
	var rec models.IngestionRecord
	err := s.pool.QueryRow(ctx, `
		SELECT object_key, symbol, year, document_type, source_url, content_hash, size_bytes, status, error, created_at, updated_at
		FROM ingestion_metadata WHERE object_key = $1`, objectKey).Scan(
		&rec.ObjectKey, &rec.Symbol, &rec.Year, &rec.DocumentType, &rec.SourceURL,
		&rec.ContentHash, &rec.SizeBytes, &rec.Status, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to load ingestion record %s: %w", objectKey, err))
	}
	return &rec, nil
}

func (s *IngestionStore) SetStatus(ctx context.Context, objectKey, status, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE ingestion_metadata SET status = $2, error = $3, updated_at = now()
		WHERE object_key = $1`,
		objectKey, status, errMsg)
	if err != nil {
		return common.Transient(fmt.Errorf("failed to set status for %s: %w", objectKey, err))
	}
	if tag.RowsAffected() == 0 {
		return common.PermanentInput(fmt.Errorf("no ingestion record for %s", objectKey))
	}
	return nil
}

func (s *IngestionStore) ListByStatus(ctx context.Context, status string, limit int) ([]*models.IngestionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT object_key, symbol, year, document_type, source_url, content_hash, size_bytes, status, error, created_at, updated_at
		FROM ingestion_metadata WHERE status = $1
		ORDER BY updated_at
		LIMIT $2`, status, limit)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to list ingestion records: %w", err))
	}
	defer rows.Close()

	var out []*models.IngestionRecord
	for rows.Next() {
		var rec models.IngestionRecord
		if err := rows.Scan(&rec.ObjectKey, &rec.Symbol, &rec.Year, &rec.DocumentType, &rec.SourceURL,
			&rec.ContentHash, &rec.SizeBytes, &rec.Status, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, common.Transient(fmt.Errorf("failed to scan ingestion record: %w", err))
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
