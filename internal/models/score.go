package models

import "time"

// IndicatorBreakdown records how one extraction contributed to a pillar
// score, including why it was excluded when it was.
type IndicatorBreakdown struct {
	IndicatorCode string   `json:"indicator_code"`
	Pillar        Pillar   `json:"pillar"`
	RawValue      string   `json:"raw_value,omitempty"`
	NumericValue  *float64 `json:"numeric_value,omitempty"`
	Normalized    *float64 `json:"normalized,omitempty"` // 0..100, nil when gated
	Weight        float64  `json:"weight"`
	Confidence    float64  `json:"confidence"`
	Included      bool     `json:"included"`
	Reason        string   `json:"reason,omitempty"` // why the indicator was gated out
}

// ESGScore is the persisted score row for one (company, year). A nil pillar
// score means no indicator of that pillar survived the confidence gate.
type ESGScore struct {
	ID            int64                `json:"id"`
	CompanyID     int64                `json:"company_id"`
	Symbol        string               `json:"symbol"`
	Year          int                  `json:"year"`
	Environment   *float64             `json:"environment"`
	Social        *float64             `json:"social"`
	Governance    *float64             `json:"governance"`
	Overall       *float64             `json:"overall"`
	MinConfidence float64              `json:"min_confidence"` // gate used for this run
	Breakdown     []IndicatorBreakdown `json:"breakdown"`
	ComputedAt    time.Time            `json:"computed_at"`
}
