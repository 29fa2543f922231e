package interfaces

import "context"

// PageText is the extracted text of one PDF page.
type PageText struct {
	Page int // 1-based
	Text string
}

// PDFExtractor pulls per-page text out of a PDF body.
type PDFExtractor interface {
	ExtractPages(ctx context.Context, pdf []byte) ([]PageText, error)
}
