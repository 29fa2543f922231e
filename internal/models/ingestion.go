package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Ingestion lifecycle states. A document moves PENDING -> EMBEDDED ->
// EXTRACTED; workers drop FAILED documents, and only a fresh ingest run
// picks them up again.
const (
	IngestionPending   = "PENDING"
	IngestionEmbedded  = "EMBEDDED"
	IngestionExtracted = "EXTRACTED"
	IngestionFailed    = "FAILED"
)

// IngestionRecord tracks one stored report through the pipeline. ObjectKey is
// the primary key and the only coupling between the workers: everything a
// downstream stage needs is recoverable from the key plus this row.
type IngestionRecord struct {
	ObjectKey    string    `json:"object_key"`
	Symbol       string    `json:"symbol"`
	Year         int       `json:"year"`
	DocumentType string    `json:"document_type"` // e.g. "BRSR"
	SourceURL    string    `json:"source_url"`
	ContentHash  string    `json:"content_hash"` // sha256 hex of the PDF body
	SizeBytes    int64     `json:"size_bytes"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// objectKeyPattern matches "<SYMBOL>/<YYYY>_<TYPE>[_<hash>].pdf". The hash
// segment is optional so keys written before hashing still parse.
var objectKeyPattern = regexp.MustCompile(`^([A-Z0-9&-]+)/(\d{4})_([A-Z0-9]+)(?:_([0-9a-f]{8,64}))?\.pdf$`)

// BuildObjectKey renders the storage key for a report PDF. hash is the
// sha256 hex of the content; only the first 8 characters go into the key.
func BuildObjectKey(symbol string, year int, docType string, hash string) string {
	if len(hash) > 8 {
		hash = hash[:8]
	}
	if hash == "" {
		return fmt.Sprintf("%s/%d_%s.pdf", symbol, year, docType)
	}
	return fmt.Sprintf("%s/%d_%s_%s.pdf", symbol, year, docType, hash)
}

// ParseObjectKey splits a storage key back into its parts. The key format is
// the contract between pipeline stages; anything that does not match is
// rejected outright.
func ParseObjectKey(key string) (symbol string, year int, docType string, err error) {
	m := objectKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return "", 0, "", fmt.Errorf("object key %q does not match <SYMBOL>/<YYYY>_<TYPE>[_<hash>].pdf", key)
	}

	year, err = strconv.Atoi(m[2])
	if err != nil {
		return "", 0, "", fmt.Errorf("object key %q has invalid year: %w", key, err)
	}
	if year < 2000 || year > 2100 {
		return "", 0, "", fmt.Errorf("object key %q has implausible year %d", key, year)
	}

	return m[1], year, m[3], nil
}
