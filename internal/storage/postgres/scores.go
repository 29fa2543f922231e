package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

// ScoreStore persists computed ESG scores with their breakdown blobs.
type ScoreStore struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

var _ interfaces.ScoreStore = (*ScoreStore)(nil)

func NewScoreStore(pool *pgxpool.Pool, logger arbor.ILogger) *ScoreStore {
	return &ScoreStore{pool: pool, logger: logger}
}

func (s *ScoreStore) Upsert(ctx context.Context, score *models.ESGScore) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return common.PermanentInput(fmt.Errorf("failed to marshal score breakdown: %w", err))
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO esg_scores
			(company_id, symbol, year, environment, social, governance, overall, min_confidence, breakdown, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (company_id, year) DO UPDATE SET
			environment = EXCLUDED.environment,
			social = EXCLUDED.social,
			governance = EXCLUDED.governance,
			overall = EXCLUDED.overall,
			min_confidence = EXCLUDED.min_confidence,
			breakdown = EXCLUDED.breakdown,
			computed_at = now()`,
		score.CompanyID, score.Symbol, score.Year,
		score.Environment, score.Social, score.Governance, score.Overall,
		score.MinConfidence, breakdown)
	if err != nil {
		return common.Transient(fmt.Errorf("failed to upsert score %s/%d: %w", score.Symbol, score.Year, err))
	}
	return nil
}

func (s *ScoreStore) Get(ctx context.Context, companyID int64, year int) (*models.ESGScore, error) {
	var score models.ESGScore
	var breakdown []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, symbol, year, environment, social, governance, overall, min_confidence, breakdown, computed_at
		FROM esg_scores WHERE company_id = $1 AND year = $2`,
		companyID, year).Scan(
		&score.ID, &score.CompanyID, &score.Symbol, &score.Year,
		&score.Environment, &score.Social, &score.Governance, &score.Overall,
		&score.MinConfidence, &breakdown, &score.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to load score: %w", err))
	}

	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &score.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to decode score breakdown: %w", err)
		}
	}
	return &score, nil
}

func (s *ScoreStore) ListYears(ctx context.Context, companyID int64) ([]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year FROM esg_scores WHERE company_id = $1 ORDER BY year DESC`, companyID)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to list score years: %w", err))
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}
