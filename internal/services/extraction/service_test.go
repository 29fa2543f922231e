package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

type fakeEmbedder struct {
	queries []string
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeGenerator struct {
	responses []string // popped in call order
	prompts   []string
	err       error
}

func (f *fakeGenerator) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not an embedder")
}

func (f *fakeGenerator) Generate(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.prompts = append(f.prompts, req.Prompt)
	if len(f.responses) == 0 {
		return "", errors.New("no canned response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeGenerator) ModelName() string { return "fake-gen-001" }
func (f *fakeGenerator) Dimensions() int   { return 0 }
func (f *fakeGenerator) Close() error      { return nil }

type fakeChunkStore struct {
	hits     []models.ScoredChunk
	searches int
}

func (f *fakeChunkStore) ReplaceDocument(ctx context.Context, objectKey string, chunks []models.ChunkEmbedding) error {
	return nil
}

func (f *fakeChunkStore) Search(ctx context.Context, symbol string, year int, query []float32, topK int) ([]models.ScoredChunk, error) {
	f.searches++
	return f.hits, nil
}

func (f *fakeChunkStore) CountForDocument(ctx context.Context, objectKey string) (int, error) {
	return len(f.hits), nil
}

type fakeExtractionStore struct {
	batches [][]models.Extraction
	exists  bool
}

func (f *fakeExtractionStore) UpsertBatch(ctx context.Context, rows []models.Extraction) error {
	f.batches = append(f.batches, rows)
	return nil
}

func (f *fakeExtractionStore) ListByCompanyYear(ctx context.Context, companyID int64, year int) ([]models.Extraction, error) {
	return nil, nil
}

func (f *fakeExtractionStore) ExistsForCompanyYear(ctx context.Context, companyID int64, year int) (bool, error) {
	return f.exists, nil
}

type fakeIndicatorSource struct {
	indicators []models.Indicator
}

func (f *fakeIndicatorSource) EnsureSeeded(ctx context.Context) error { return nil }

func (f *fakeIndicatorSource) DefinitionsByAttribute(ctx context.Context) (map[int][]models.Indicator, error) {
	grouped := make(map[int][]models.Indicator)
	for _, ind := range f.indicators {
		grouped[ind.Attribute] = append(grouped[ind.Attribute], ind)
	}
	return grouped, nil
}

var (
	_ interfaces.LLMService      = (*fakeGenerator)(nil)
	_ interfaces.EmbeddingStore  = (*fakeChunkStore)(nil)
	_ interfaces.ExtractionStore = (*fakeExtractionStore)(nil)
)

var testIndicators = []models.Indicator{
	{Code: "E1_GHG_SCOPE1", Attribute: 1, ParameterName: "Total Scope 1 GHG emissions", Unit: "tCO2e", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1.5, Min: 0, Max: 5_000_000},
	{Code: "G9_ASSURANCE_STATUS", Attribute: 9, ParameterName: "Independent assurance of sustainability disclosures", Kind: models.ValueText, Polarity: models.HigherIsBetter, Weight: 0.8},
}

func sampleHits() []models.ScoredChunk {
	return []models.ScoredChunk{
		{ChunkEmbedding: models.ChunkEmbedding{Text: "Scope 1 emissions were 12,345.6 tCO2e in FY 2023-24.", Page: 42}, Distance: 0.12},
		{ChunkEmbedding: models.ChunkEmbedding{Text: "Disclosures were assured by DNV.", Page: 7}, Distance: 0.30},
	}
}

func newTestService(gen *fakeGenerator, chunks *fakeChunkStore, store *fakeExtractionStore) (*Service, *fakeEmbedder) {
	embedder := &fakeEmbedder{}
	svc := NewService(embedder, gen, chunks, store, &fakeIndicatorSource{indicators: testIndicators},
		common.ExtractionConfig{TopK: 5},
		common.GenerationConfig{ModelName: "fake-gen-001", Temperature: 0.1},
		arbor.NewLogger())
	return svc, embedder
}

func TestExtractCompanyYear(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"value": "12,345.6 tCO2e", "unit": "tCO2e", "confidence": 1.4, "source_pages": [42], "reasoning": "stated in the emissions table"}`,
		// Fenced output exercises the repair path.
		"```json\n{\"value\": \"Assured by DNV\", \"confidence\": 0.8, \"source_pages\": [7]}\n```",
	}}
	chunks := &fakeChunkStore{hits: sampleHits()}
	store := &fakeExtractionStore{}
	svc, embedder := newTestService(gen, chunks, store)

	company := &models.Company{ID: 7, Symbol: "RELIANCE"}
	rows, err := svc.ExtractCompanyYear(context.Background(), company, 2024)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// One retrieval query per indicator, rendered from the definition.
	require.Len(t, embedder.queries, 2)
	assert.Equal(t, "Total Scope 1 GHG emissions tCO2e", embedder.queries[0])

	ghg := rows[0]
	assert.Equal(t, "E1_GHG_SCOPE1", ghg.IndicatorCode)
	assert.Equal(t, int64(7), ghg.CompanyID)
	assert.Equal(t, "12,345.6 tCO2e", ghg.RawValue)
	require.NotNil(t, ghg.NumericValue)
	assert.InDelta(t, 12345.6, *ghg.NumericValue, 1e-9)
	assert.Equal(t, 1.0, ghg.Confidence, "confidence above 1 must clamp")
	assert.Equal(t, []int{42}, ghg.SourcePages)
	assert.Equal(t, "fake-gen-001", ghg.Model)

	assurance := rows[1]
	assert.Equal(t, "G9_ASSURANCE_STATUS", assurance.IndicatorCode)
	assert.Equal(t, "Assured by DNV", assurance.RawValue)
	assert.Nil(t, assurance.NumericValue, "text indicators never get numeric values")
	assert.InDelta(t, 0.8, assurance.Confidence, 1e-9)

	// All rows land in a single batch.
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 2)
}

func TestExtractCompanyYearNoChunks(t *testing.T) {
	gen := &fakeGenerator{}
	chunks := &fakeChunkStore{} // no hits for anything
	store := &fakeExtractionStore{}
	svc, _ := newTestService(gen, chunks, store)

	rows, err := svc.ExtractCompanyYear(context.Background(), &models.Company{ID: 7, Symbol: "TCS"}, 2024)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, row := range rows {
		assert.Zero(t, row.Confidence)
		assert.Empty(t, row.RawValue)
		assert.NotEmpty(t, row.Reasoning)
	}
	// No supporting text means no model calls.
	assert.Empty(t, gen.prompts)
	require.Len(t, store.batches, 1)
}

func TestExtractCompanyYearUnparseableResponse(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"value": "10", "confidence": 0.9}`,
		`The report does not mention this parameter anywhere I can see.`,
	}}
	chunks := &fakeChunkStore{hits: sampleHits()}
	store := &fakeExtractionStore{}
	svc, _ := newTestService(gen, chunks, store)

	rows, err := svc.ExtractCompanyYear(context.Background(), &models.Company{ID: 7, Symbol: "TCS"}, 2024)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.InDelta(t, 0.9, rows[0].Confidence, 1e-9)
	assert.Zero(t, rows[1].Confidence)
	assert.Equal(t, "model response could not be parsed", rows[1].Reasoning)
}

func TestExtractCompanyYearGeneratorFailure(t *testing.T) {
	gen := &fakeGenerator{err: common.Transient(errors.New("provider unavailable"))}
	chunks := &fakeChunkStore{hits: sampleHits()}
	store := &fakeExtractionStore{}
	svc, _ := newTestService(gen, chunks, store)

	_, err := svc.ExtractCompanyYear(context.Background(), &models.Company{ID: 7, Symbol: "TCS"}, 2024)
	require.Error(t, err)
	assert.Equal(t, common.FaultTransient, common.KindOf(err))
	// Nothing is written when the run aborts.
	assert.Empty(t, store.batches)
}

func TestExtractCompanyYearRejectsNilCompany(t *testing.T) {
	svc, _ := newTestService(&fakeGenerator{}, &fakeChunkStore{}, &fakeExtractionStore{})

	_, err := svc.ExtractCompanyYear(context.Background(), nil, 2024)
	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		value string
		conf  float64
	}{
		{"plain", `{"value": "42", "confidence": 0.7}`, "42", 0.7},
		{"fenced", "```json\n{\"value\": \"42\", \"confidence\": 0.7}\n```", "42", 0.7},
		{"trailing comma", `{"value": "42", "confidence": 0.7,}`, "42", 0.7},
		{"single quotes", `{'value': '42', 'confidence': 0.7}`, "42", 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseResponse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.value, parsed.Value)
			assert.InDelta(t, tt.conf, parsed.Confidence, 1e-9)
		})
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12,345.6 tCO2e", 12345.6, true},
		{"42", 42, true},
		{"-3.5", -3.5, true},
		{"approximately 1,200 kilolitres", 1200, true},
		{"not disclosed", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumeric(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(testIndicators[0], sampleHits())

	assert.Contains(t, prompt, "Disclosure parameter: Total Scope 1 GHG emissions")
	assert.Contains(t, prompt, "Expected unit: tCO2e")
	assert.Contains(t, prompt, "[Page 42]")
	assert.Contains(t, prompt, "Scope 1 emissions were 12,345.6 tCO2e")
	assert.Contains(t, prompt, "single JSON object")
	// Excerpts precede the instructions so citations resolve upward.
	assert.Less(t, strings.Index(prompt, "[Page 42]"), strings.Index(prompt, "Respond with"))
}

func TestResponseSchemaShape(t *testing.T) {
	schema := responseSchema()
	require.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	for _, field := range []string{"value", "numeric_value", "unit", "confidence", "source_pages", "reasoning"} {
		assert.Contains(t, props, field, fmt.Sprintf("schema is missing %s", field))
	}
}
