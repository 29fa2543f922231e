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

// CatalogStore persists the listed-company catalog in Postgres.
type CatalogStore struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

var _ interfaces.CatalogStore = (*CatalogStore)(nil)

// NewCatalogStore creates a catalog store backed by the given pool.
func NewCatalogStore(pool *pgxpool.Pool, logger arbor.ILogger) *CatalogStore {
	return &CatalogStore{pool: pool, logger: logger}
}

// Reconcile applies a full snapshot in one transaction: every row is
// upserted on symbol, then companies absent from the snapshot are deleted.
// Either all of it lands or none of it does.
func (s *CatalogStore) Reconcile(ctx context.Context, rows []models.CatalogRow) (models.SyncResult, error) {
	var result models.SyncResult
	if len(rows) == 0 {
		return result, common.PermanentInput(errors.New("refusing to reconcile an empty snapshot"))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, common.Transient(fmt.Errorf("failed to begin catalog transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	symbols := make([]string, 0, len(rows))
	for _, row := range rows {
		tag, err := tx.Exec(ctx, `
			INSERT INTO company_catalog (symbol, name, industry, series, isin)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (symbol) DO UPDATE SET
				name = EXCLUDED.name,
				industry = EXCLUDED.industry,
				series = EXCLUDED.series,
				isin = EXCLUDED.isin,
				updated_at = now()`,
			row.Symbol, row.Name, row.Industry, row.Series, row.ISIN)
		if err != nil {
			return result, common.Transient(fmt.Errorf("failed to upsert company %s: %w", row.Symbol, err))
		}
		result.Upserted += int(tag.RowsAffected())
		symbols = append(symbols, row.Symbol)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM company_catalog WHERE NOT (symbol = ANY($1))`, symbols)
	if err != nil {
		return result, common.Transient(fmt.Errorf("failed to delete departed companies: %w", err))
	}
	result.Deleted = int(tag.RowsAffected())

	if err := tx.Commit(ctx); err != nil {
		return result, common.Transient(fmt.Errorf("failed to commit catalog reconciliation: %w", err))
	}

	s.logger.Info().
		Int("upserted", result.Upserted).
		Int("deleted", result.Deleted).
		Msg("Catalog reconciled")

	return result, nil
}

func (s *CatalogStore) GetBySymbol(ctx context.Context, symbol string) (*models.Company, error) {
	return s.getOne(ctx, `SELECT id, symbol, name, industry, series, isin, created_at, updated_at
		FROM company_catalog WHERE symbol = $1`, symbol)
}

func (s *CatalogStore) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	return s.getOne(ctx, `SELECT id, symbol, name, industry, series, isin, created_at, updated_at
		FROM company_catalog WHERE id = $1`, id)
}

func (s *CatalogStore) getOne(ctx context.Context, query string, arg interface{}) (*models.Company, error) {
	var c models.Company
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Symbol, &c.Name, &c.Industry, &c.Series, &c.ISIN, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to load company: %w", err))
	}
	return &c, nil
}

// List returns a page of companies matching query (symbol or name, case
// insensitive) plus the total match count.
func (s *CatalogStore) List(ctx context.Context, query string, offset, limit int) ([]*models.Company, int, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"

	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM company_catalog WHERE symbol ILIKE $1 OR name ILIKE $1`,
		pattern).Scan(&total)
	if err != nil {
		return nil, 0, common.Transient(fmt.Errorf("failed to count companies: %w", err))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, name, industry, series, isin, created_at, updated_at
		FROM company_catalog
		WHERE symbol ILIKE $1 OR name ILIKE $1
		ORDER BY symbol
		OFFSET $2 LIMIT $3`,
		pattern, offset, limit)
	if err != nil {
		return nil, 0, common.Transient(fmt.Errorf("failed to list companies: %w", err))
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Symbol, &c.Name, &c.Industry, &c.Series, &c.ISIN, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, common.Transient(fmt.Errorf("failed to scan company: %w", err))
		}
		companies = append(companies, &c)
	}

	return companies, total, rows.Err()
}
