package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
)

// Extractor pulls per-page text out of PDF bodies using pdfcpu. Extraction
// goes through temp files because pdfcpu's content extraction is file-based.
type Extractor struct {
	logger  arbor.ILogger
	tempDir string
}

var _ interfaces.PDFExtractor = (*Extractor)(nil)

func NewExtractor(logger arbor.ILogger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "esgpipe-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Extractor{
		logger:  logger,
		tempDir: tempDir,
	}
}

// ExtractPages returns one entry per page, in page order. Pages whose
// content could not be extracted come back with empty text; the caller
// decides whether an all-empty document is an error.
func (e *Extractor) ExtractPages(ctx context.Context, pdf []byte) ([]interfaces.PageText, error) {
	if len(pdf) == 0 {
		return nil, common.PermanentInput(fmt.Errorf("pdf body is empty"))
	}

	tempFile, err := os.CreateTemp(e.tempDir, "extract_*.pdf")
	if err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("failed to create temp PDF file: %w", err))
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(pdf); err != nil {
		tempFile.Close()
		return nil, common.PermanentSystem(fmt.Errorf("failed to write temp PDF file: %w", err))
	}
	if err := tempFile.Close(); err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("failed to close temp PDF file: %w", err))
	}

	pdfCtx, err := api.ReadContextFile(tempPath)
	if err != nil {
		return nil, common.PermanentInput(fmt.Errorf("failed to read PDF: %w", err))
	}
	if pdfCtx.Encrypt != nil {
		return nil, common.PermanentInput(fmt.Errorf("PDF is encrypted"))
	}

	pageCount := pdfCtx.PageCount
	pages := make([]interfaces.PageText, 0, pageCount)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outDir, err := os.MkdirTemp(e.tempDir, "pages_")
	if err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("failed to create extraction dir: %w", err))
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempPath, outDir, nil, conf); err != nil {
		e.logger.Warn().Err(err).Int("pages", pageCount).Msg("PDF content extraction failed, returning empty pages")
		for pageNum := 1; pageNum <= pageCount; pageNum++ {
			pages = append(pages, interfaces.PageText{Page: pageNum})
		}
		return pages, nil
	}

	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		} else if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pages = append(pages, interfaces.PageText{
			Page: pageNum,
			Text: pageTexts[pageNum],
		})
	}

	e.logger.Debug().
		Int("pages", pageCount).
		Int("with_text", len(pageTexts)).
		Msg("Extracted PDF pages")

	return pages, nil
}
