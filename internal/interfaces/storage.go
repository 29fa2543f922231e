package interfaces

import (
	"context"
	"time"

	"github.com/greenarc/esgpipe/internal/models"
)

// CatalogStore persists the listed-company catalog.
type CatalogStore interface {
	// Reconcile applies a full snapshot in one transaction: upsert every
	// row, delete companies whose symbol is absent from the snapshot.
	Reconcile(ctx context.Context, rows []models.CatalogRow) (models.SyncResult, error)

	GetBySymbol(ctx context.Context, symbol string) (*models.Company, error)
	GetByID(ctx context.Context, id int64) (*models.Company, error)
	List(ctx context.Context, query string, offset, limit int) ([]*models.Company, int, error)
}

// AnnouncementStore persists exchange announcement rows.
type AnnouncementStore interface {
	Upsert(ctx context.Context, rows []models.Announcement) (int, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]models.Announcement, error)
}

// IngestionStore tracks report documents through the pipeline.
type IngestionStore interface {
	Upsert(ctx context.Context, rec *models.IngestionRecord) error
	Get(ctx context.Context, objectKey string) (*models.IngestionRecord, error)
	SetStatus(ctx context.Context, objectKey, status, errMsg string) error
	ListByStatus(ctx context.Context, status string, limit int) ([]*models.IngestionRecord, error)
}

// EmbeddingStore persists and searches chunk vectors.
type EmbeddingStore interface {
	// ReplaceDocument deletes prior rows for the object key and bulk-inserts
	// the given chunks in the same transaction.
	ReplaceDocument(ctx context.Context, objectKey string, chunks []models.ChunkEmbedding) error

	// Search runs filtered kNN over one company-year's chunks.
	Search(ctx context.Context, symbol string, year int, query []float32, topK int) ([]models.ScoredChunk, error)

	CountForDocument(ctx context.Context, objectKey string) (int, error)
}

// IndicatorStore persists the BRSR indicator catalog.
type IndicatorStore interface {
	// EnsureSeeded inserts any missing catalog rows; existing rows win.
	EnsureSeeded(ctx context.Context, indicators []models.Indicator) error
	ListByAttribute(ctx context.Context) (map[int][]models.Indicator, error)
}

// ExtractionStore persists extracted indicator values.
type ExtractionStore interface {
	// UpsertBatch writes all extractions for one (company, year) in a single
	// transaction, overwriting earlier runs.
	UpsertBatch(ctx context.Context, rows []models.Extraction) error
	ListByCompanyYear(ctx context.Context, companyID int64, year int) ([]models.Extraction, error)
	ExistsForCompanyYear(ctx context.Context, companyID int64, year int) (bool, error)
}

// ScoreStore persists computed ESG scores.
type ScoreStore interface {
	Upsert(ctx context.Context, score *models.ESGScore) error
	Get(ctx context.Context, companyID int64, year int) (*models.ESGScore, error)
	ListYears(ctx context.Context, companyID int64) ([]int, error)
}

// LiveLinkStore persists registered telemetry dashboards.
type LiveLinkStore interface {
	List(ctx context.Context) ([]models.LiveLink, error)
	Add(ctx context.Context, link *models.LiveLink) error
}

// UserStore persists users and API keys.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error)
}

// TelemetryStore is the append-only snapshot sink.
type TelemetryStore interface {
	Append(ctx context.Context, snapshot *models.TelemetrySnapshot) error
	Latest(ctx context.Context, companyName string) (*models.TelemetrySnapshot, error)
	LatestSince(ctx context.Context, companyName string, since time.Time) (*models.TelemetrySnapshot, error)
}
