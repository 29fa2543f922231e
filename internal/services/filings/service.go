package filings

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/queue"
)

const (
	// maxReportBytes caps how much of a report we buffer. Annual reports run
	// to a few hundred pages; anything past this is not a filing.
	maxReportBytes = 100 << 20

	downloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	sweepPageSize = 200
)

// Service downloads report PDFs into object storage and queues them for
// embedding. The object key doubles as the dedupe handle: content is hashed
// before storage, so re-running a sweep never duplicates work.
type Service struct {
	resolver   interfaces.ReportResolver
	objects    interfaces.ObjectStorage
	ingestion  interfaces.IngestionStore
	catalog    interfaces.CatalogStore
	publisher  interfaces.Publisher
	httpClient *http.Client
	cfg        common.FilingsConfig
	logger     arbor.ILogger
}

// NewService wires the ingestion service.
func NewService(
	resolver interfaces.ReportResolver,
	objects interfaces.ObjectStorage,
	ingestion interfaces.IngestionStore,
	catalog interfaces.CatalogStore,
	publisher interfaces.Publisher,
	cfg common.FilingsConfig,
	logger arbor.ILogger,
) *Service {
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Service{
		resolver:   resolver,
		objects:    objects,
		ingestion:  ingestion,
		catalog:    catalog,
		publisher:  publisher,
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// SweepResult counts one ingestion sweep over the catalog.
type SweepResult struct {
	Companies int `json:"companies"`
	Ingested  int `json:"ingested"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Ingest fetches the report for one company-year, stores it, records it as
// PENDING, and publishes the object key to the embedding queue. created is
// false when the same content was already ingested; the key is still
// returned so callers can re-trigger downstream stages.
func (s *Service) Ingest(ctx context.Context, company *models.Company, year int) (string, bool, error) {
	reportURL, err := s.resolver.ResolveReportURL(ctx, company, year)
	if err != nil {
		return "", false, err
	}

	var body []byte
	err = common.Retry(ctx, common.DefaultRetryPolicy(), func(ctx context.Context) error {
		var downloadErr error
		body, downloadErr = s.download(ctx, reportURL)
		return downloadErr
	})
	if err != nil {
		return "", false, err
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	key := models.BuildObjectKey(company.Symbol, year, s.cfg.DocumentType, hash)

	existing, err := s.ingestion.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	// A FAILED row is retried from scratch; anything else is already in
	// flight or done.
	if existing != nil && existing.Status != models.IngestionFailed {
		s.logger.Info().
			Str("object_key", key).
			Str("status", existing.Status).
			Msg("Report already ingested, skipping")
		return key, false, nil
	}

	if err := s.objects.Put(ctx, key, bytes.NewReader(body), int64(len(body)), "application/pdf"); err != nil {
		return "", false, err
	}

	rec := &models.IngestionRecord{
		ObjectKey:    key,
		Symbol:       company.Symbol,
		Year:         year,
		DocumentType: s.cfg.DocumentType,
		SourceURL:    reportURL,
		ContentHash:  hash,
		SizeBytes:    int64(len(body)),
		Status:       models.IngestionPending,
	}
	if err := s.ingestion.Upsert(ctx, rec); err != nil {
		return "", false, err
	}

	// The embedding queue carries the bare object key; everything else is
	// recoverable from the key and the ingestion row.
	if err := s.publisher.Publish(ctx, queue.EmbeddingTasks, []byte(key)); err != nil {
		return "", false, err
	}

	s.logger.Info().
		Str("object_key", key).
		Str("source_url", reportURL).
		Int64("bytes", rec.SizeBytes).
		Msg("Report ingested")
	return key, true, nil
}

// IngestAll sweeps the whole catalog for one reporting year. Failures are
// isolated per company: the sweep logs them and moves on, so one delisted
// symbol or missing filing never aborts the batch.
func (s *Service) IngestAll(ctx context.Context, year int) (*SweepResult, error) {
	result := &SweepResult{}
	started := time.Now()

	offset := 0
	for {
		companies, total, err := s.catalog.List(ctx, "", offset, sweepPageSize)
		if err != nil {
			return result, err
		}
		if len(companies) == 0 {
			break
		}

		for _, company := range companies {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			result.Companies++
			_, created, err := s.Ingest(ctx, company, year)
			switch {
			case err != nil:
				result.Failed++
				s.logger.Warn().Err(err).
					Str("symbol", company.Symbol).
					Int("year", year).
					Msg("Company ingestion failed")
			case created:
				result.Ingested++
			default:
				result.Skipped++
			}
		}

		offset += len(companies)
		if offset >= total {
			break
		}
	}

	s.logger.Info().
		Int("companies", result.Companies).
		Int("ingested", result.Ingested).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", time.Since(started)).
		Msg("Ingestion sweep completed")
	return result, nil
}

// download fetches the report body and validates it is a PDF.
func (s *Service) download(ctx context.Context, reportURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reportURL, nil)
	if err != nil {
		return nil, common.PermanentInput(fmt.Errorf("invalid report URL %q: %w", reportURL, err))
	}
	req.Header.Set("User-Agent", downloadUserAgent)
	req.Header.Set("Accept", "application/pdf,*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to download report: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, common.Transient(fmt.Errorf("report download returned status %d", resp.StatusCode))
	default:
		return nil, common.PermanentInput(fmt.Errorf("report download returned status %d for %s", resp.StatusCode, reportURL))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBytes+1))
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to read report body: %w", err))
	}
	if len(body) > maxReportBytes {
		return nil, common.PermanentInput(fmt.Errorf("report at %s exceeds %d bytes", reportURL, maxReportBytes))
	}
	if len(body) == 0 {
		return nil, common.PermanentInput(fmt.Errorf("report at %s is empty", reportURL))
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		return nil, common.PermanentInput(fmt.Errorf("report at %s is not a PDF", reportURL))
	}

	return body, nil
}
