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

// AnnouncementStore persists exchange announcements. Rows are append-only;
// the unique key keeps re-syncs idempotent.
type AnnouncementStore struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

var _ interfaces.AnnouncementStore = (*AnnouncementStore)(nil)

func NewAnnouncementStore(pool *pgxpool.Pool, logger arbor.ILogger) *AnnouncementStore {
	return &AnnouncementStore{pool: pool, logger: logger}
}

// Upsert inserts new announcement rows, ignoring ones already stored.
// Returns the number of rows actually inserted.
func (s *AnnouncementStore) Upsert(ctx context.Context, rows []models.Announcement) (int, error) {
	inserted := 0
	for _, row := range rows {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO announcements (symbol, subject, attachment_url, broadcast_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (symbol, broadcast_at, subject) DO NOTHING`,
			row.Symbol, row.Subject, row.AttachmentURL, row.BroadcastAt)
		if err != nil {
			return inserted, common.Transient(fmt.Errorf("failed to insert announcement for %s: %w", row.Symbol, err))
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *AnnouncementStore) ListBySymbol(ctx context.Context, symbol string, limit int) ([]models.Announcement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, subject, attachment_url, broadcast_at, created_at
		FROM announcements
		WHERE symbol = $1
		ORDER BY broadcast_at DESC
		LIMIT $2`,
		symbol, limit)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to list announcements: %w", err))
	}
	defer rows.Close()

	var out []models.Announcement
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Subject, &a.AttachmentURL, &a.BroadcastAt, &a.CreatedAt); err != nil {
			return nil, common.Transient(fmt.Errorf("failed to scan announcement: %w", err))
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
