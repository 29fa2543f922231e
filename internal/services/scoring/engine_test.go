package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

var scoringIndicators = []models.Indicator{
	{Code: "E1_A", Attribute: 1, ParameterName: "emissions A", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 2, Min: 0, Max: 100},
	{Code: "E2_B", Attribute: 2, ParameterName: "energy B", Kind: models.ValueNumeric, Polarity: models.LowerIsBetter, Weight: 1, Min: 0, Max: 100},
	{Code: "S5_A", Attribute: 5, ParameterName: "safety A", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1, Min: 0, Max: 10},
	{Code: "G8_A", Attribute: 8, ParameterName: "board A", Kind: models.ValueNumeric, Polarity: models.HigherIsBetter, Weight: 1, Min: 0, Max: 100},
	{Code: "G9_TEXT", Attribute: 9, ParameterName: "assurance", Kind: models.ValueText, Polarity: models.HigherIsBetter, Weight: 1},
}

type fakeIndicatorSource struct{}

func (fakeIndicatorSource) DefinitionsByAttribute(ctx context.Context) (map[int][]models.Indicator, error) {
	grouped := make(map[int][]models.Indicator)
	for _, ind := range scoringIndicators {
		grouped[ind.Attribute] = append(grouped[ind.Attribute], ind)
	}
	return grouped, nil
}

type fakeExtractionStore struct {
	rows []models.Extraction
}

func (f *fakeExtractionStore) UpsertBatch(ctx context.Context, rows []models.Extraction) error {
	return nil
}

func (f *fakeExtractionStore) ListByCompanyYear(ctx context.Context, companyID int64, year int) ([]models.Extraction, error) {
	return f.rows, nil
}

func (f *fakeExtractionStore) ExistsForCompanyYear(ctx context.Context, companyID int64, year int) (bool, error) {
	return len(f.rows) > 0, nil
}

type fakeScoreStore struct {
	upserted []*models.ESGScore
}

func (f *fakeScoreStore) Upsert(ctx context.Context, score *models.ESGScore) error {
	f.upserted = append(f.upserted, score)
	return nil
}

func (f *fakeScoreStore) Get(ctx context.Context, companyID int64, year int) (*models.ESGScore, error) {
	return nil, nil
}

func (f *fakeScoreStore) ListYears(ctx context.Context, companyID int64) ([]int, error) {
	return nil, nil
}

type fakeCache struct {
	invalidated []string
}

func (f *fakeCache) Get(ctx context.Context, scope, id string, dest interface{}) (bool, error) {
	return false, nil
}

func (f *fakeCache) Set(ctx context.Context, scope, id string, value interface{}, ttl time.Duration) error {
	return nil
}

func (f *fakeCache) InvalidateScope(ctx context.Context, scope string) (int, error) {
	f.invalidated = append(f.invalidated, scope)
	return 1, nil
}

func (f *fakeCache) Enabled() bool                  { return true }
func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }

var (
	_ interfaces.ExtractionStore = (*fakeExtractionStore)(nil)
	_ interfaces.ScoreStore      = (*fakeScoreStore)(nil)
	_ interfaces.CacheService    = (*fakeCache)(nil)
)

func newTestEngine(rows []models.Extraction) (*Engine, *fakeScoreStore, *fakeCache) {
	scores := &fakeScoreStore{}
	cache := &fakeCache{}
	engine := NewEngine(&fakeExtractionStore{rows: rows}, fakeIndicatorSource{}, scores, cache,
		common.ScoringConfig{MinConfidence: 0.3}, arbor.NewLogger())
	return engine, scores, cache
}

func TestCompute(t *testing.T) {
	rows := []models.Extraction{
		{IndicatorCode: "E1_A", NumericValue: floatPtr(80), Confidence: 0.9},
		{IndicatorCode: "E2_B", NumericValue: floatPtr(20), Confidence: 0.8},  // lower-is-better: normalizes to 80
		{IndicatorCode: "S5_A", NumericValue: floatPtr(5), Confidence: 0.2},   // gated out
		{IndicatorCode: "G8_A", NumericValue: floatPtr(150), Confidence: 1.0}, // clamps to 100
		{IndicatorCode: "G9_TEXT", RawValue: "Assured by DNV", Confidence: 0.9},
	}
	engine, scores, cache := newTestEngine(rows)

	score, err := engine.Compute(context.Background(), 7, "RELIANCE", 2024)
	require.NoError(t, err)

	// E = (80*2 + 80*1) / 3, G = 100, S has nothing past the gate.
	require.NotNil(t, score.Environment)
	assert.InDelta(t, 80.0, *score.Environment, 1e-9)
	assert.Nil(t, score.Social)
	require.NotNil(t, score.Governance)
	assert.InDelta(t, 100.0, *score.Governance, 1e-9)
	require.NotNil(t, score.Overall)
	assert.InDelta(t, 90.0, *score.Overall, 1e-9)

	require.Len(t, score.Breakdown, 5)
	included := 0
	for _, entry := range score.Breakdown {
		if entry.Included {
			included++
			require.NotNil(t, entry.Normalized)
		}
	}
	assert.Equal(t, 3, included)

	byCode := make(map[string]models.IndicatorBreakdown)
	for _, entry := range score.Breakdown {
		byCode[entry.IndicatorCode] = entry
	}
	assert.Equal(t, "confidence 0.20 below gate 0.30", byCode["S5_A"].Reason)
	assert.Equal(t, "narrative indicator, recorded but not scored", byCode["G9_TEXT"].Reason)
	assert.Equal(t, models.PillarGovernance, byCode["G8_A"].Pillar)
	assert.InDelta(t, 100.0, *byCode["G8_A"].Normalized, 1e-9)

	require.Len(t, scores.upserted, 1)
	assert.Equal(t, []string{"scores:7"}, cache.invalidated)
}

func TestComputeAllGated(t *testing.T) {
	rows := []models.Extraction{
		{IndicatorCode: "E1_A", NumericValue: floatPtr(80), Confidence: 0.1},
		{IndicatorCode: "S5_A", Confidence: 0},
	}
	engine, scores, _ := newTestEngine(rows)

	score, err := engine.Compute(context.Background(), 7, "TCS", 2024)
	require.NoError(t, err)

	assert.Nil(t, score.Environment)
	assert.Nil(t, score.Social)
	assert.Nil(t, score.Governance)
	assert.Nil(t, score.Overall)
	// The row is still persisted so "scored, nothing usable" is queryable.
	require.Len(t, scores.upserted, 1)
	assert.Len(t, score.Breakdown, 2)
}

func TestComputeMissingNumericValue(t *testing.T) {
	rows := []models.Extraction{
		{IndicatorCode: "E1_A", RawValue: "approximately eighty", Confidence: 0.9},
	}
	engine, _, _ := newTestEngine(rows)

	score, err := engine.Compute(context.Background(), 7, "TCS", 2024)
	require.NoError(t, err)

	assert.Nil(t, score.Environment)
	require.Len(t, score.Breakdown, 1)
	assert.False(t, score.Breakdown[0].Included)
	assert.Equal(t, "no numeric value extracted", score.Breakdown[0].Reason)
}

func TestComputeNoExtractions(t *testing.T) {
	engine, _, _ := newTestEngine(nil)

	_, err := engine.Compute(context.Background(), 7, "TCS", 2024)
	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
}

func TestComputeSkipsRetiredIndicators(t *testing.T) {
	rows := []models.Extraction{
		{IndicatorCode: "E1_A", NumericValue: floatPtr(50), Confidence: 0.9},
		{IndicatorCode: "RETIRED_CODE", NumericValue: floatPtr(10), Confidence: 0.9},
	}
	engine, _, _ := newTestEngine(rows)

	score, err := engine.Compute(context.Background(), 7, "TCS", 2024)
	require.NoError(t, err)
	assert.Len(t, score.Breakdown, 1)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min, max float64
		polarity models.Polarity
		want     float64
	}{
		{"midpoint higher", 50, 0, 100, models.HigherIsBetter, 50},
		{"midpoint lower", 50, 0, 100, models.LowerIsBetter, 50},
		{"below floor clamps", -10, 0, 100, models.HigherIsBetter, 0},
		{"above ceiling clamps", 150, 0, 100, models.HigherIsBetter, 100},
		{"above ceiling lower", 150, 0, 100, models.LowerIsBetter, 0},
		{"offset range", 30, 20, 40, models.HigherIsBetter, 50},
		{"degenerate range", 5, 10, 10, models.HigherIsBetter, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.value, tt.min, tt.max, tt.polarity)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNormalizePolaritySymmetry(t *testing.T) {
	for _, v := range []float64{-10, 0, 12.5, 50, 99.9, 100, 250} {
		higher := Normalize(v, 0, 100, models.HigherIsBetter)
		lower := Normalize(v, 0, 100, models.LowerIsBetter)
		assert.InDelta(t, 100.0, higher+lower, 1e-9, "value %v", v)
	}
}
