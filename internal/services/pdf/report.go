package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/models"
)

// ReportService renders company score reports. The body is built as
// markdown and rendered to PDF through goldmark, so the same content can
// back other output formats later.
type ReportService struct {
	logger arbor.ILogger
}

func NewReportService(logger arbor.ILogger) *ReportService {
	return &ReportService{logger: logger}
}

// ScoreReport produces the PDF score report for one company-year.
func (s *ReportService) ScoreReport(company *models.Company, score *models.ESGScore) ([]byte, error) {
	if company == nil || score == nil {
		return nil, common.PermanentInput(fmt.Errorf("company and score are required for a report"))
	}

	markdown := buildScoreMarkdown(company, score)
	pdfBytes, err := s.RenderMarkdown(markdown)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("symbol", company.Symbol).
		Int("year", score.Year).
		Int("pdf_size", len(pdfBytes)).
		Msg("Score report generated")
	return pdfBytes, nil
}

func buildScoreMarkdown(company *models.Company, score *models.ESGScore) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# ESG Score Report: %s (%s)\n\n", company.Name, company.Symbol)
	fmt.Fprintf(&b, "**Reporting year:** %d\n\n", score.Year)
	fmt.Fprintf(&b, "**Computed:** %s\n\n", score.ComputedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "**Confidence gate:** %.2f\n\n", score.MinConfidence)

	b.WriteString("## Pillar scores\n\n")
	b.WriteString("| Pillar | Score |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Environment | %s |\n", formatScore(score.Environment))
	fmt.Fprintf(&b, "| Social | %s |\n", formatScore(score.Social))
	fmt.Fprintf(&b, "| Governance | %s |\n", formatScore(score.Governance))
	fmt.Fprintf(&b, "| **Overall** | %s |\n\n", formatScore(score.Overall))

	included := 0
	for _, row := range score.Breakdown {
		if row.Included {
			included++
		}
	}
	fmt.Fprintf(&b, "## Indicator breakdown\n\n%d of %d extracted indicators passed the confidence gate.\n\n",
		included, len(score.Breakdown))

	if len(score.Breakdown) > 0 {
		b.WriteString("| Indicator | Pillar | Value | Normalized | Weight | Confidence | Included |\n")
		b.WriteString("|-----------|--------|-------|------------|--------|------------|----------|\n")
		for _, row := range score.Breakdown {
			value := row.RawValue
			if row.NumericValue != nil {
				value = fmt.Sprintf("%.4g", *row.NumericValue)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %.1f | %.2f | %s |\n",
				row.IndicatorCode, row.Pillar, value,
				formatScore(row.Normalized), row.Weight, row.Confidence,
				includedLabel(row))
		}
		b.WriteString("\n")
	}

	excluded := make([]models.IndicatorBreakdown, 0)
	for _, row := range score.Breakdown {
		if !row.Included && row.Reason != "" {
			excluded = append(excluded, row)
		}
	}
	if len(excluded) > 0 {
		b.WriteString("## Exclusions\n\n")
		for _, row := range excluded {
			fmt.Fprintf(&b, "- **%s**: %s\n", row.IndicatorCode, row.Reason)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatScore(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}

func includedLabel(row models.IndicatorBreakdown) string {
	if row.Included {
		return "yes"
	}
	return "no"
}

// RenderMarkdown converts markdown content to a PDF byte slice.
func (s *ReportService) RenderMarkdown(markdown string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(10, 10, 10)
	doc.SetAutoPageBreak(true, 10)
	doc.AddPage()
	doc.SetFont("Arial", "", 9)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	)

	source := []byte(markdown)
	root := md.Parser().Parse(text.NewReader(source))

	renderer := &reportRenderer{
		pdf:    doc,
		source: source,
		font:   "Arial",
		size:   9,
	}
	if err := ast.Walk(root, renderer.walk); err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("failed to render report: %w", err))
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("failed to write PDF output: %w", err))
	}
	return buf.Bytes(), nil
}

type reportRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	listLevel int
}

func (r *reportRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *reportRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		heading := n.(*ast.Heading)
		if entering {
			r.pdf.Ln(6)
			size := 14.0
			switch heading.Level {
			case 1:
				size = 14
			case 2:
				size = 12
			default:
				size = 10
			}
			r.pdf.SetFont(r.font, "B", size)
		} else {
			r.pdf.Ln(6)
			r.updateFont()
		}
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			r.pdf.Write(5, string(n.(*ast.Text).Text(r.source)))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case ast.KindList:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(5)
			}
		}
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(15 + float64(r.listLevel)*5)
			r.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case extast.KindTable:
		if entering {
			r.renderTable(n.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *reportRenderer) renderTable(table *extast.Table) {
	var rows [][]string
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *extast.TableHeader:
			// Header children are the cells themselves.
			if row := r.extractRow(c); len(row) > 0 {
				rows = append(rows, row)
			}
		case *extast.TableRow:
			rows = append(rows, r.extractRow(c))
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	r.pdf.Ln(2)

	const pageWidth = 190.0
	const fontSize = 8.0
	const rowHeight = 6.0

	numCols := len(rows[0])
	widths := r.columnWidths(rows, numCols, pageWidth, fontSize)

	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(r.font, "B", fontSize)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont(r.font, "", fontSize)
			r.pdf.SetFillColor(255, 255, 255)
		}

		for j := 0; j < numCols; j++ {
			cell := ""
			if j < len(row) {
				cell = r.truncate(row[j], widths[j]-2)
			}
			r.pdf.CellFormat(widths[j], rowHeight, cell, "1", 0, "L", i == 0, 0, "")
		}
		r.pdf.Ln(rowHeight)
	}

	r.pdf.Ln(3)
	r.updateFont()
}

func (r *reportRenderer) extractRow(n ast.Node) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, string(cell.Text(r.source)))
		}
	}
	return row
}

// columnWidths sizes columns by their widest content, then scales the set to
// fill the page width.
func (r *reportRenderer) columnWidths(rows [][]string, numCols int, pageWidth, fontSize float64) []float64 {
	widths := make([]float64, numCols)
	r.pdf.SetFont(r.font, "", fontSize)

	for _, row := range rows {
		for i, cell := range row {
			if i >= numCols {
				break
			}
			if w := r.pdf.GetStringWidth(cell) + 4; w > widths[i] {
				widths[i] = w
			}
		}
	}

	total := 0.0
	for i := range widths {
		if widths[i] < 12 {
			widths[i] = 12
		}
		total += widths[i]
	}

	scale := pageWidth / total
	for i := range widths {
		widths[i] *= scale
	}
	return widths
}

func (r *reportRenderer) truncate(s string, width float64) string {
	if r.pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 3 && r.pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
