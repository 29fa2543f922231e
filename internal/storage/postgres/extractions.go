package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

// ExtractionStore persists extracted indicator values.
type ExtractionStore struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

var _ interfaces.ExtractionStore = (*ExtractionStore)(nil)

func NewExtractionStore(pool *pgxpool.Pool, logger arbor.ILogger) *ExtractionStore {
	return &ExtractionStore{pool: pool, logger: logger}
}

// UpsertBatch writes every extraction for one (company, year) in a single
// transaction. Conflicts on (company_id, year, indicator_code) overwrite, so
// a redelivered message converges to the same rows.
func (s *ExtractionStore) UpsertBatch(ctx context.Context, rows []models.Extraction) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return common.Transient(fmt.Errorf("failed to begin extraction transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		_, err := tx.Exec(ctx, `
			INSERT INTO extracted_indicators
				(company_id, symbol, year, indicator_code, raw_value, numeric_value, unit, confidence, source_pages, reasoning, model)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (company_id, year, indicator_code) DO UPDATE SET
				raw_value = EXCLUDED.raw_value,
				numeric_value = EXCLUDED.numeric_value,
				unit = EXCLUDED.unit,
				confidence = EXCLUDED.confidence,
				source_pages = EXCLUDED.source_pages,
				reasoning = EXCLUDED.reasoning,
				model = EXCLUDED.model,
				created_at = now()`,
			row.CompanyID, row.Symbol, row.Year, row.IndicatorCode, row.RawValue,
			row.NumericValue, row.Unit, row.Confidence, row.SourcePages, row.Reasoning, row.Model)
		if err != nil {
			return common.Transient(fmt.Errorf("failed to upsert extraction %s/%d/%s: %w",
				row.Symbol, row.Year, row.IndicatorCode, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return common.Transient(fmt.Errorf("failed to commit extractions: %w", err))
	}

	s.logger.Debug().Int("rows", len(rows)).Msg("Extractions upserted")
	return nil
}

func (s *ExtractionStore) ListByCompanyYear(ctx context.Context, companyID int64, year int) ([]models.Extraction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, symbol, year, indicator_code, raw_value, numeric_value, unit, confidence, source_pages, reasoning, model, created_at
		FROM extracted_indicators
		WHERE company_id = $1 AND year = $2
		ORDER BY indicator_code`,
		companyID, year)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to list extractions: %w", err))
	}
	defer rows.Close()

	var out []models.Extraction
	for rows.Next() {
		var e models.Extraction
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Symbol, &e.Year, &e.IndicatorCode, &e.RawValue,
			&e.NumericValue, &e.Unit, &e.Confidence, &e.SourcePages, &e.Reasoning, &e.Model, &e.CreatedAt); err != nil {
			return nil, common.Transient(fmt.Errorf("failed to scan extraction: %w", err))
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *ExtractionStore) ExistsForCompanyYear(ctx context.Context, companyID int64, year int) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM extracted_indicators WHERE company_id = $1 AND year = $2)`,
		companyID, year).Scan(&exists)
	if err != nil {
		return false, common.Transient(fmt.Errorf("failed to check extractions: %w", err))
	}
	return exists, nil
}
