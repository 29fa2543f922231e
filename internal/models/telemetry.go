package models

import "time"

// LiveLink is a registered pollution-control dashboard to scrape. Rows live
// in Postgres; the scheduler fans them out every cycle.
type LiveLink struct {
	ID           int64     `json:"id"`
	CompanyName  string    `json:"company_name"`
	Industry     string    `json:"industry,omitempty"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}

// Reading statuses. A measurement showing the dashboard's sentinel value is
// reported as not operational rather than dropped.
const (
	StatusOperational    = "Operational"
	StatusNotOperational = "Not Operational"
)

// Reading is one measurement cell from a dashboard widget.
type Reading struct {
	Status string `json:"status"`
	Value  string `json:"value"`
	Time   string `json:"time,omitempty"`
}

// TelemetrySnapshot is one full scrape of a dashboard: every station
// (parent) with its measurements. Snapshots are append-only history.
type TelemetrySnapshot struct {
	CompanyName  string                        `json:"company_name" bson:"company_name"`
	Industry     string                        `json:"industry,omitempty" bson:"industry,omitempty"`
	Jurisdiction string                        `json:"jurisdiction,omitempty" bson:"jurisdiction,omitempty"`
	SourceURL    string                        `json:"source_url" bson:"source_url"`
	Readings     map[string]map[string]Reading `json:"readings" bson:"readings"`
	ScrapedAt    time.Time                     `json:"scraped_at" bson:"scraped_at"`
}
