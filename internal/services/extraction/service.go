package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

const defaultTopK = 10

// QueryEmbedder is the slice of the embedding service retrieval needs.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// IndicatorSource supplies the seeded indicator catalog.
type IndicatorSource interface {
	EnsureSeeded(ctx context.Context) error
	DefinitionsByAttribute(ctx context.Context) (map[int][]models.Indicator, error)
}

// Service runs the per-indicator retrieval and LLM chain over an embedded
// report and persists all rows for a (company, year) in one transaction.
type Service struct {
	embedder    QueryEmbedder
	generator   interfaces.LLMService
	chunks      interfaces.EmbeddingStore
	extractions interfaces.ExtractionStore
	catalog     IndicatorSource
	cfg         common.ExtractionConfig
	genCfg      common.GenerationConfig
	logger      arbor.ILogger
}

// NewService wires the extraction chain.
func NewService(
	embedder QueryEmbedder,
	generator interfaces.LLMService,
	chunks interfaces.EmbeddingStore,
	extractions interfaces.ExtractionStore,
	catalog IndicatorSource,
	cfg common.ExtractionConfig,
	genCfg common.GenerationConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		embedder:    embedder,
		generator:   generator,
		chunks:      chunks,
		extractions: extractions,
		catalog:     catalog,
		cfg:         cfg,
		genCfg:      genCfg,
		logger:      logger,
	}
}

// AlreadyProcessed reports whether extractions exist for the company-year.
func (s *Service) AlreadyProcessed(ctx context.Context, companyID int64, year int) (bool, error) {
	return s.extractions.ExistsForCompanyYear(ctx, companyID, year)
}

// ExtractCompanyYear runs the chain for every cataloged indicator in
// attribute order and upserts the full result set at once. Infrastructure
// errors abort the run with nothing written; re-runs are idempotent.
// Indicators without supporting text get zero-confidence rows, so every
// catalog entry is accounted for in the output.
func (s *Service) ExtractCompanyYear(ctx context.Context, company *models.Company, year int) ([]models.Extraction, error) {
	if company == nil || company.ID == 0 {
		return nil, common.PermanentInput(fmt.Errorf("company is required"))
	}

	if err := s.catalog.EnsureSeeded(ctx); err != nil {
		return nil, err
	}
	byAttribute, err := s.catalog.DefinitionsByAttribute(ctx)
	if err != nil {
		return nil, err
	}

	attributes := make([]int, 0, len(byAttribute))
	for attr := range byAttribute {
		attributes = append(attributes, attr)
	}
	sort.Ints(attributes)

	started := time.Now()
	var rows []models.Extraction
	found := 0

	for _, attr := range attributes {
		for _, ind := range byAttribute[attr] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			row, err := s.extractIndicator(ctx, company, year, ind)
			if err != nil {
				return nil, fmt.Errorf("indicator %s: %w", ind.Code, err)
			}
			if row.Confidence > 0 {
				found++
			}
			rows = append(rows, row)
		}
	}

	if err := s.extractions.UpsertBatch(ctx, rows); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("symbol", company.Symbol).
		Int("year", year).
		Int("indicators", len(rows)).
		Int("found", found).
		Dur("duration", time.Since(started)).
		Msg("Indicator extraction completed")
	return rows, nil
}

// extractIndicator retrieves supporting chunks and asks the model for the
// value. A model answer that cannot be parsed even after repair becomes a
// zero-confidence row rather than failing the document.
func (s *Service) extractIndicator(ctx context.Context, company *models.Company, year int, ind models.Indicator) (models.Extraction, error) {
	row := models.Extraction{
		CompanyID:     company.ID,
		Symbol:        company.Symbol,
		Year:          year,
		IndicatorCode: ind.Code,
		Model:         s.generator.ModelName(),
	}

	vector, err := s.embedder.EmbedQuery(ctx, ind.QueryText())
	if err != nil {
		return row, err
	}

	hits, err := s.chunks.Search(ctx, company.Symbol, year, vector, s.topK())
	if err != nil {
		return row, err
	}
	if len(hits) == 0 {
		row.Reasoning = "no supporting text found in the report"
		return row, nil
	}

	raw, err := s.generator.Generate(ctx, &interfaces.GenerateRequest{
		System:      systemPrompt,
		Prompt:      buildPrompt(ind, hits),
		Temperature: s.genCfg.Temperature,
		MaxTokens:   s.genCfg.MaxTokens,
		JSONSchema:  responseSchema(),
	})
	if err != nil {
		return row, err
	}

	parsed, err := parseResponse(raw)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("indicator", ind.Code).
			Str("symbol", company.Symbol).
			Msg("Model response unparseable, recording zero confidence")
		row.Reasoning = "model response could not be parsed"
		return row, nil
	}

	row.RawValue = strings.TrimSpace(parsed.Value)
	row.Unit = strings.TrimSpace(parsed.Unit)
	row.Confidence = clamp01(parsed.Confidence)
	row.SourcePages = parsed.SourcePages
	row.Reasoning = parsed.Reasoning

	if ind.Kind == models.ValueNumeric {
		switch {
		case parsed.NumericValue != nil:
			row.NumericValue = parsed.NumericValue
		case row.RawValue != "":
			if v, ok := parseNumeric(row.RawValue); ok {
				row.NumericValue = &v
			}
		}
	}

	return row, nil
}

func (s *Service) topK() int {
	if s.cfg.TopK > 0 {
		return s.cfg.TopK
	}
	return defaultTopK
}

type modelResponse struct {
	Value        string   `json:"value"`
	NumericValue *float64 `json:"numeric_value"`
	Unit         string   `json:"unit"`
	Confidence   float64  `json:"confidence"`
	SourcePages  []int    `json:"source_pages"`
	Reasoning    string   `json:"reasoning"`
}

// parseResponse repairs common LLM output defects (fences, trailing commas,
// single quotes) and unmarshals the result.
func parseResponse(raw string) (*modelResponse, error) {
	repaired, err := jsonrepair.RepairJSON(raw)
	if err != nil {
		repaired = raw
	}

	var out modelResponse
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	return &out, nil
}

var numericPattern = regexp.MustCompile(`-?\d[\d,]*\.?\d*`)

// parseNumeric pulls the first number out of a disclosed value string,
// tolerating thousands separators ("12,345.6 tCO2e" -> 12345.6).
func parseNumeric(s string) (float64, bool) {
	match := numericPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
