package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

// IndicatorStore persists the BRSR indicator catalog.
type IndicatorStore struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

var _ interfaces.IndicatorStore = (*IndicatorStore)(nil)

func NewIndicatorStore(pool *pgxpool.Pool, logger arbor.ILogger) *IndicatorStore {
	return &IndicatorStore{pool: pool, logger: logger}
}

// EnsureSeeded inserts missing catalog rows. Existing rows are left alone so
// operator tweaks to weights or bounds survive restarts.
func (s *IndicatorStore) EnsureSeeded(ctx context.Context, indicators []models.Indicator) error {
	for _, ind := range indicators {
		if err := ind.Validate(); err != nil {
			return common.PermanentSystem(fmt.Errorf("indicator seed rejected: %w", err))
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return common.Transient(fmt.Errorf("failed to begin indicator seed transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, ind := range indicators {
		tag, err := tx.Exec(ctx, `
			INSERT INTO brsr_indicators
				(code, attribute, parameter_name, unit, keywords, kind, polarity, weight, min_value, max_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (code) DO NOTHING`,
			ind.Code, ind.Attribute, ind.ParameterName, ind.Unit, ind.Keywords,
			string(ind.Kind), string(ind.Polarity), ind.Weight, ind.Min, ind.Max)
		if err != nil {
			return common.Transient(fmt.Errorf("failed to seed indicator %s: %w", ind.Code, err))
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return common.Transient(fmt.Errorf("failed to commit indicator seed: %w", err))
	}

	if inserted > 0 {
		s.logger.Info().Int("inserted", inserted).Int("total", len(indicators)).Msg("Indicator catalog seeded")
	}
	return nil
}

// ListByAttribute returns the catalog grouped by BRSR attribute, each group
// ordered by code for deterministic processing.
func (s *IndicatorStore) ListByAttribute(ctx context.Context) (map[int][]models.Indicator, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, attribute, parameter_name, unit, keywords, kind, polarity, weight, min_value, max_value
		FROM brsr_indicators
		ORDER BY attribute, code`)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to list indicators: %w", err))
	}
	defer rows.Close()

	grouped := make(map[int][]models.Indicator)
	for rows.Next() {
		var ind models.Indicator
		var kind, polarity string
		if err := rows.Scan(&ind.Code, &ind.Attribute, &ind.ParameterName, &ind.Unit, &ind.Keywords,
			&kind, &polarity, &ind.Weight, &ind.Min, &ind.Max); err != nil {
			return nil, common.Transient(fmt.Errorf("failed to scan indicator: %w", err))
		}
		ind.Kind = models.ValueKind(kind)
		ind.Polarity = models.Polarity(polarity)
		grouped[ind.Attribute] = append(grouped[ind.Attribute], ind)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for attr := range grouped {
		sort.Slice(grouped[attr], func(i, j int) bool {
			return grouped[attr][i].Code < grouped[attr][j].Code
		})
	}
	return grouped, nil
}
