package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-20250514" -> Claude
// - "claude/claude-sonnet-4-20250514" -> Claude (with prefix)
// - "gemini-2.5-flash" -> Gemini
// - "gemini/gemini-2.5-flash" -> Gemini (with prefix)
// Anything else defaults to Gemini.
func DetectProvider(model string) ProviderType {
	m := strings.ToLower(model)

	if strings.HasPrefix(m, "claude/") || strings.HasPrefix(m, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(m, "gemini/") || strings.HasPrefix(m, "google/") {
		return ProviderGemini
	}

	if strings.HasPrefix(m, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(m, "gemini-") {
		return ProviderGemini
	}

	return ProviderGemini
}

// NormalizeModel removes a provider prefix from a model name if present.
func NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// NewEmbedder builds the embedding-side service from config. Only Gemini
// models embed; a Claude model name here is a configuration error.
func NewEmbedder(ctx context.Context, cfg common.EmbeddingConfig, logger arbor.ILogger) (interfaces.LLMService, error) {
	model := NormalizeModel(cfg.ModelName)

	if DetectProvider(cfg.ModelName) != ProviderGemini {
		return nil, common.PermanentSystem(fmt.Errorf("embedding model %s is not a Gemini model: only Gemini provides embeddings", cfg.ModelName))
	}

	svc, err := newGeminiService(ctx, geminiOptions{
		APIKey:     cfg.APIKey,
		Model:      model,
		Dimensions: cfg.Dimensions,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("model", model).
		Int("dimensions", cfg.Dimensions).
		Msg("Embedding service initialized")
	return svc, nil
}

// NewGenerator builds the generation-side service, choosing the provider
// from the model name.
func NewGenerator(ctx context.Context, cfg common.GenerationConfig, logger arbor.ILogger) (interfaces.LLMService, error) {
	provider := DetectProvider(cfg.ModelName)
	model := NormalizeModel(cfg.ModelName)

	var (
		svc interfaces.LLMService
		err error
	)
	switch provider {
	case ProviderClaude:
		svc, err = newClaudeService(claudeOptions{
			APIKey:      cfg.APIKey,
			Model:       model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}, logger)
	default:
		svc, err = newGeminiService(ctx, geminiOptions{
			APIKey:      cfg.APIKey,
			Model:       model,
			Temperature: cfg.Temperature,
		}, logger)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("provider", string(provider)).
		Str("model", model).
		Msg("Generation service initialized")
	return svc, nil
}
