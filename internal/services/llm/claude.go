package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
)

const claudeDefaultMaxTokens = 4096

type claudeOptions struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// ClaudeService implements the generation side of LLMService against the
// Anthropic API. Claude has no embeddings endpoint, so EmbedBatch always
// fails; pair it with a Gemini embedder.
type ClaudeService struct {
	client anthropic.Client
	logger arbor.ILogger
	opts   claudeOptions
	retry  *RateLimitPolicy
}

var _ interfaces.LLMService = (*ClaudeService)(nil)

func newClaudeService(opts claudeOptions, logger arbor.ILogger) (*ClaudeService, error) {
	if opts.APIKey == "" {
		return nil, common.PermanentSystem(fmt.Errorf("Anthropic API key is required for model %s", opts.Model))
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = claudeDefaultMaxTokens
	}

	client := anthropic.NewClient(
		option.WithAPIKey(opts.APIKey),
	)

	return &ClaudeService{
		client: client,
		logger: logger,
		opts:   opts,
		retry:  NewDefaultRateLimitPolicy(),
	}, nil
}

func (s *ClaudeService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, common.PermanentSystem(fmt.Errorf("model %s does not provide embeddings", s.opts.Model))
}

// Generate runs one completion. Claude has no schema-constrained output
// mode, so JSONSchema requests rely on the prompt's format instructions and
// downstream JSON repair.
func (s *ClaudeService) Generate(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return "", common.PermanentInput(fmt.Errorf("generation prompt cannot be empty"))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.opts.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.opts.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	temp := req.Temperature
	if temp <= 0 {
		temp = s.opts.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	var resp *anthropic.Message
	var apiErr error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, generateCallTimeout)
		resp, apiErr = s.client.Messages.New(callCtx, params)
		cancel()
		if apiErr == nil {
			break
		}

		if attempt == s.retry.MaxAttempts-1 {
			break
		}

		backoff := s.retry.backoffFor(attempt, apiErr)
		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Claude API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return "", common.Transient(fmt.Errorf("Claude generation failed after %d attempts: %w", s.retry.MaxAttempts, apiErr))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", common.Transient(fmt.Errorf("empty response from Claude API"))
	}

	return text.String(), nil
}

func (s *ClaudeService) ModelName() string {
	return s.opts.Model
}

func (s *ClaudeService) Dimensions() int {
	return 0
}

func (s *ClaudeService) Close() error {
	return nil
}
