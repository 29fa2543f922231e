package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

// broadcastLayouts are the timestamp formats seen in the announcements feed.
var broadcastLayouts = []string{
	"02-Jan-2006 15:04:05",
	"02-Jan-2006",
	"2006-01-02 15:04:05",
}

// Service reconciles the company catalog and announcement log against
// exchange CSV snapshots.
type Service struct {
	client        *Client
	catalog       interfaces.CatalogStore
	announcements interfaces.AnnouncementStore
	cfg           common.CatalogConfig
	logger        arbor.ILogger
}

func NewService(
	client *Client,
	catalog interfaces.CatalogStore,
	announcements interfaces.AnnouncementStore,
	cfg common.CatalogConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		client:        client,
		catalog:       catalog,
		announcements: announcements,
		cfg:           cfg,
		logger:        logger,
	}
}

// SyncCatalog fetches the equity list snapshot and reconciles the catalog
// against it in one transaction. The job fails outright on an unparseable or
// empty feed; it never half-commits.
func (s *Service) SyncCatalog(ctx context.Context) (models.SyncResult, error) {
	var records [][]string
	err := common.Retry(ctx, common.DefaultRetryPolicy(), func(ctx context.Context) error {
		var ferr error
		records, ferr = s.client.FetchCSV(ctx, s.cfg.EquityListURL)
		return ferr
	})
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("equity list fetch failed: %w", err)
	}

	rows, skipped, err := parseEquityRows(records)
	if err != nil {
		return models.SyncResult{}, err
	}

	result, err := s.catalog.Reconcile(ctx, rows)
	if err != nil {
		return models.SyncResult{}, err
	}
	result.Skipped = skipped

	s.logger.Info().
		Int("upserted", result.Upserted).
		Int("deleted", result.Deleted).
		Int("skipped", result.Skipped).
		Msg("Catalog sync complete")

	return result, nil
}

// SyncAnnouncements fetches the corporate announcements snapshot and upserts
// the rows. Returns the number of stored announcements.
func (s *Service) SyncAnnouncements(ctx context.Context) (int, error) {
	if s.cfg.AnnouncementsURL == "" {
		return 0, common.PermanentSystem(fmt.Errorf("announcements URL is not configured"))
	}

	var records [][]string
	err := common.Retry(ctx, common.DefaultRetryPolicy(), func(ctx context.Context) error {
		var ferr error
		records, ferr = s.client.FetchCSV(ctx, s.cfg.AnnouncementsURL)
		return ferr
	})
	if err != nil {
		return 0, fmt.Errorf("announcements fetch failed: %w", err)
	}

	rows, skipped := parseAnnouncementRows(records)
	if len(rows) == 0 {
		s.logger.Warn().Int("skipped", skipped).Msg("Announcements feed had no usable rows")
		return 0, nil
	}

	stored, err := s.announcements.Upsert(ctx, rows)
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Int("stored", stored).
		Int("skipped", skipped).
		Msg("Announcements sync complete")

	return stored, nil
}

// headerIndex maps normalized column names to their positions. Exchange
// headers carry stray spaces and vary between "ISIN" and "ISIN NUMBER".
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	return idx
}

func field(record []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if i, ok := idx[name]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
	}
	return ""
}

// parseEquityRows turns the raw CSV into catalog rows. Rows without a symbol
// or name are skipped and counted; a feed with no usable rows is an error.
func parseEquityRows(records [][]string) ([]models.CatalogRow, int, error) {
	if len(records) < 2 {
		return nil, 0, common.PermanentInput(fmt.Errorf("equity feed is empty"))
	}

	idx := headerIndex(records[0])
	if _, ok := idx["SYMBOL"]; !ok {
		return nil, 0, common.PermanentInput(fmt.Errorf("equity feed is missing a SYMBOL column"))
	}

	rows := make([]models.CatalogRow, 0, len(records)-1)
	skipped := 0
	for _, record := range records[1:] {
		row := models.CatalogRow{
			Symbol:   strings.ToUpper(field(record, idx, "SYMBOL")),
			Name:     field(record, idx, "NAME OF COMPANY", "COMPANY NAME", "NAME"),
			Industry: field(record, idx, "INDUSTRY"),
			Series:   field(record, idx, "SERIES"),
			ISIN:     field(record, idx, "ISIN NUMBER", "ISIN"),
		}
		if row.Symbol == "" || row.Name == "" {
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, skipped, common.PermanentInput(fmt.Errorf("equity feed had no usable rows (%d skipped)", skipped))
	}
	return rows, skipped, nil
}

// parseAnnouncementRows turns the raw CSV into announcement rows. Rows
// without a symbol, subject, or parseable timestamp are skipped.
func parseAnnouncementRows(records [][]string) ([]models.Announcement, int) {
	if len(records) < 2 {
		return nil, 0
	}

	idx := headerIndex(records[0])
	rows := make([]models.Announcement, 0, len(records)-1)
	skipped := 0
	for _, record := range records[1:] {
		symbol := strings.ToUpper(field(record, idx, "SYMBOL"))
		subject := field(record, idx, "SUBJECT")
		broadcast := field(record, idx, "BROADCAST DATE/TIME", "BROADCAST DATE", "BROADCAST_DATE")

		at, ok := parseBroadcastTime(broadcast)
		if symbol == "" || subject == "" || !ok {
			skipped++
			continue
		}

		rows = append(rows, models.Announcement{
			Symbol:        symbol,
			Subject:       subject,
			AttachmentURL: field(record, idx, "ATTACHMENT", "ATTACHMENT URL"),
			BroadcastAt:   at,
		})
	}
	return rows, skipped
}

func parseBroadcastTime(value string) (time.Time, bool) {
	for _, layout := range broadcastLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
