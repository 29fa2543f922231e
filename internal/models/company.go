package models

import "time"

// Company is one row of the listed-company catalog. Symbol is the natural
// key; catalog sync upserts on it and deletes rows that leave the snapshot.
type Company struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Industry  string    `json:"industry,omitempty"`
	Series    string    `json:"series,omitempty"`
	ISIN      string    `json:"isin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CatalogRow is one parsed record of the upstream equity CSV snapshot.
type CatalogRow struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
	Series   string `json:"series"`
	ISIN     string `json:"isin"`
}

// SyncResult summarizes one catalog reconciliation run.
type SyncResult struct {
	Upserted int `json:"upserted"`
	Deleted  int `json:"deleted"`
	Skipped  int `json:"skipped"` // malformed CSV rows
}
