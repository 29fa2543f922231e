package models

import "time"

// DocumentChunk is one splitter output from a report page, pre-embedding.
type DocumentChunk struct {
	Text  string `json:"text"`
	Page  int    `json:"page"`  // 1-based page the text came from
	Index int    `json:"index"` // chunk ordinal within the document
}

// ChunkEmbedding is a stored chunk with its vector. Rows are bulk-inserted in
// one transaction per document so retrieval never sees a half-embedded report.
type ChunkEmbedding struct {
	ID        int64     `json:"id"`
	ObjectKey string    `json:"object_key"`
	Symbol    string    `json:"symbol"`
	Year      int       `json:"year"`
	Page      int       `json:"page"`
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoredChunk is a retrieval hit: a stored chunk plus its distance to the
// query vector (smaller is closer).
type ScoredChunk struct {
	ChunkEmbedding
	Distance float64 `json:"distance"`
}
