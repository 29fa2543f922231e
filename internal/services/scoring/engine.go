package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

const defaultMinConfidence = 0.3

// IndicatorSource supplies indicator definitions for scoring.
type IndicatorSource interface {
	DefinitionsByAttribute(ctx context.Context) (map[int][]models.Indicator, error)
}

// Engine turns extracted indicator values into pillar and overall scores.
type Engine struct {
	extractions interfaces.ExtractionStore
	indicators  IndicatorSource
	scores      interfaces.ScoreStore
	cache       interfaces.CacheService
	cfg         common.ScoringConfig
	logger      arbor.ILogger
}

// NewEngine wires the scoring engine. cache may be nil.
func NewEngine(
	extractions interfaces.ExtractionStore,
	indicators IndicatorSource,
	scores interfaces.ScoreStore,
	cache interfaces.CacheService,
	cfg common.ScoringConfig,
	logger arbor.ILogger,
) *Engine {
	return &Engine{
		extractions: extractions,
		indicators:  indicators,
		scores:      scores,
		cache:       cache,
		cfg:         cfg,
		logger:      logger,
	}
}

// Compute scores one (company, year) from its persisted extractions and
// upserts the result. Pillars with no indicator past the confidence gate are
// null; the score row is written even when every pillar is null, so the API
// can distinguish "scored, nothing usable" from "never scored".
func (e *Engine) Compute(ctx context.Context, companyID int64, symbol string, year int) (*models.ESGScore, error) {
	extractions, err := e.extractions.ListByCompanyYear(ctx, companyID, year)
	if err != nil {
		return nil, err
	}
	if len(extractions) == 0 {
		return nil, common.PermanentInput(fmt.Errorf("no extractions for company %d year %d", companyID, year))
	}

	byAttribute, err := e.indicators.DefinitionsByAttribute(ctx)
	if err != nil {
		return nil, err
	}
	definitions := make(map[string]models.Indicator)
	for _, group := range byAttribute {
		for _, ind := range group {
			definitions[ind.Code] = ind
		}
	}

	gate := e.minConfidence()
	score := &models.ESGScore{
		CompanyID:     companyID,
		Symbol:        symbol,
		Year:          year,
		MinConfidence: gate,
		ComputedAt:    time.Now().UTC(),
	}

	type accumulator struct {
		weighted float64
		weights  float64
	}
	pillars := make(map[models.Pillar]*accumulator)

	for _, ex := range extractions {
		ind, ok := definitions[ex.IndicatorCode]
		if !ok {
			// Extraction rows from a retired indicator; skip silently.
			continue
		}

		entry := models.IndicatorBreakdown{
			IndicatorCode: ex.IndicatorCode,
			Pillar:        ind.Pillar(),
			RawValue:      ex.RawValue,
			NumericValue:  ex.NumericValue,
			Weight:        ind.Weight,
			Confidence:    ex.Confidence,
		}

		switch {
		case ex.Confidence < gate:
			entry.Reason = fmt.Sprintf("confidence %.2f below gate %.2f", ex.Confidence, gate)
		case ind.Kind != models.ValueNumeric:
			entry.Reason = "narrative indicator, recorded but not scored"
		case ex.NumericValue == nil:
			entry.Reason = "no numeric value extracted"
		default:
			n := Normalize(*ex.NumericValue, ind.Min, ind.Max, ind.Polarity)
			entry.Normalized = &n
			entry.Included = true

			acc := pillars[entry.Pillar]
			if acc == nil {
				acc = &accumulator{}
				pillars[entry.Pillar] = acc
			}
			acc.weighted += n * ind.Weight
			acc.weights += ind.Weight
		}

		score.Breakdown = append(score.Breakdown, entry)
	}

	assign := func(p models.Pillar) *float64 {
		acc := pillars[p]
		if acc == nil || acc.weights == 0 {
			return nil
		}
		v := acc.weighted / acc.weights
		return &v
	}
	score.Environment = assign(models.PillarEnvironment)
	score.Social = assign(models.PillarSocial)
	score.Governance = assign(models.PillarGovernance)
	score.Overall = overall(score.Environment, score.Social, score.Governance)

	if err := e.scores.Upsert(ctx, score); err != nil {
		return nil, err
	}

	e.invalidate(ctx, companyID)

	e.logger.Info().
		Str("symbol", symbol).
		Int("year", year).
		Int("indicators", len(score.Breakdown)).
		Msg("ESG score computed")
	return score, nil
}

func (e *Engine) minConfidence() float64 {
	if e.cfg.MinConfidence > 0 {
		return e.cfg.MinConfidence
	}
	return defaultMinConfidence
}

// invalidate drops cached score responses for the company. Best effort: a
// cold cache is a correctness no-op.
func (e *Engine) invalidate(ctx context.Context, companyID int64) {
	if e.cache == nil || !e.cache.Enabled() {
		return
	}
	scope := fmt.Sprintf("scores:%d", companyID)
	if _, err := e.cache.InvalidateScope(ctx, scope); err != nil {
		e.logger.Warn().Err(err).Str("scope", scope).Msg("Cache invalidation failed")
	}
}

// Normalize maps a raw value onto 0..100 within [min, max]. Values outside
// the bounds clamp rather than extrapolate. Lower-is-better indicators
// invert, so Normalize(v, min, max, higher) + Normalize(v, min, max, lower)
// is always 100.
func Normalize(value, min, max float64, polarity models.Polarity) float64 {
	if max <= min {
		return 0
	}
	n := (value - min) / (max - min)
	if n < 0 {
		n = 0
	}
	if n > 1 {
		n = 1
	}
	n *= 100
	if polarity == models.LowerIsBetter {
		n = 100 - n
	}
	return n
}

// overall is the arithmetic mean of the non-null pillars.
func overall(pillarScores ...*float64) *float64 {
	sum := 0.0
	count := 0
	for _, p := range pillarScores {
		if p != nil {
			sum += *p
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}
