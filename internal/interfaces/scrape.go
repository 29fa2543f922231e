package interfaces

import (
	"context"

	"github.com/greenarc/esgpipe/internal/models"
)

// ReportResolver finds the downloadable report URL for a company-year.
type ReportResolver interface {
	ResolveReportURL(ctx context.Context, company *models.Company, year int) (string, error)
}

// DashboardScraper turns one live dashboard into a telemetry snapshot.
type DashboardScraper interface {
	Scrape(ctx context.Context, link models.LiveLink) (*models.TelemetrySnapshot, error)
}
