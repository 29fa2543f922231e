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

// LiveLinkStore persists registered telemetry dashboard URLs.
type LiveLinkStore struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

var _ interfaces.LiveLinkStore = (*LiveLinkStore)(nil)

func NewLiveLinkStore(pool *pgxpool.Pool, logger arbor.ILogger) *LiveLinkStore {
	return &LiveLinkStore{pool: pool, logger: logger}
}

func (s *LiveLinkStore) List(ctx context.Context) ([]models.LiveLink, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_name, industry, jurisdiction, url, created_at
		FROM live_links ORDER BY company_name`)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to list live links: %w", err))
	}
	defer rows.Close()

	var links []models.LiveLink
	for rows.Next() {
		var l models.LiveLink
		if err := rows.Scan(&l.ID, &l.CompanyName, &l.Industry, &l.Jurisdiction, &l.URL, &l.CreatedAt); err != nil {
			return nil, common.Transient(fmt.Errorf("failed to scan live link: %w", err))
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *LiveLinkStore) Add(ctx context.Context, link *models.LiveLink) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO live_links (company_name, industry, jurisdiction, url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			industry = EXCLUDED.industry,
			jurisdiction = EXCLUDED.jurisdiction
		RETURNING id, created_at`,
		link.CompanyName, link.Industry, link.Jurisdiction, link.URL).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		return common.Transient(fmt.Errorf("failed to add live link: %w", err))
	}
	return nil
}
