package models

import "time"

// Extraction is one indicator value pulled out of a report by the LLM chain,
// or a zero-confidence placeholder when no supporting text was found.
// Unique on (company, year, indicator code); re-runs overwrite.
type Extraction struct {
	ID            int64     `json:"id"`
	CompanyID     int64     `json:"company_id"`
	Symbol        string    `json:"symbol"`
	Year          int       `json:"year"`
	IndicatorCode string    `json:"indicator_code"`
	RawValue      string    `json:"raw_value"`
	NumericValue  *float64  `json:"numeric_value,omitempty"`
	Unit          string    `json:"unit,omitempty"`
	Confidence    float64   `json:"confidence"` // always clamped to [0,1]
	SourcePages   []int     `json:"source_pages,omitempty"`
	Reasoning     string    `json:"reasoning,omitempty"`
	Model         string    `json:"model,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
