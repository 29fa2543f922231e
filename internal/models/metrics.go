package models

import "time"

// Processing outcomes for worker metrics.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// ProcessingMetrics is one worker's record of handling one document.
type ProcessingMetrics struct {
	ObjectKey   string        `json:"object_key"`
	Worker      string        `json:"worker"`
	Outcome     string        `json:"outcome"`
	FaultKind   string        `json:"fault_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	Chunks      int           `json:"chunks,omitempty"`
	Extractions int           `json:"extractions,omitempty"`
	Duration    time.Duration `json:"duration"`
	FinishedAt  time.Time     `json:"finished_at"`
}
