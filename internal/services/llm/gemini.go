package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
)

const (
	embedCallTimeout    = 30 * time.Second
	generateCallTimeout = 60 * time.Second
)

type geminiOptions struct {
	APIKey      string
	Model       string
	Dimensions  int     // embedding role; zero for generation-only instances
	Temperature float32 // generation role
}

// GeminiService implements LLMService against the Gemini API. One instance
// serves a single role: the embedder carries Dimensions, the generator
// carries Temperature.
type GeminiService struct {
	client *genai.Client
	logger arbor.ILogger
	opts   geminiOptions
	retry  *RateLimitPolicy
}

var _ interfaces.LLMService = (*GeminiService)(nil)

func newGeminiService(ctx context.Context, opts geminiOptions, logger arbor.ILogger) (*GeminiService, error) {
	if opts.APIKey == "" {
		return nil, common.PermanentSystem(fmt.Errorf("Gemini API key is required for model %s", opts.Model))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("failed to create Gemini client: %w", err))
	}

	return &GeminiService{
		client: client,
		logger: logger,
		opts:   opts,
		retry:  NewDefaultRateLimitPolicy(),
	}, nil
}

// EmbedBatch embeds texts in one API call. The response must carry one
// vector per input with exactly the configured dimensionality; anything
// else is rejected rather than stored.
func (s *GeminiService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, common.PermanentInput(fmt.Errorf("embedding batch cannot be empty"))
	}
	if s.opts.Dimensions <= 0 {
		return nil, common.PermanentSystem(fmt.Errorf("service %s is not configured for embeddings", s.opts.Model))
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	outputDim := int32(s.opts.Dimensions)
	config := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	var result *genai.EmbedContentResponse
	var apiErr error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, embedCallTimeout)
		result, apiErr = s.client.Models.EmbedContent(callCtx, s.opts.Model, contents, config)
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
			Int("batch_size", len(texts)).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying embedding call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return nil, common.Transient(fmt.Errorf("embedding call failed after %d attempts: %w", s.retry.MaxAttempts, apiErr))
	}

	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, common.Transient(fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), got))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) != s.opts.Dimensions {
			got := 0
			if emb != nil {
				got = len(emb.Values)
			}
			return nil, common.PermanentSystem(fmt.Errorf("embedding dimension mismatch at index %d: expected %d, got %d", i, s.opts.Dimensions, got))
		}
		vectors[i] = emb.Values
	}

	return vectors, nil
}

// Generate runs one completion. When req.JSONSchema is set the model is
// constrained to JSON output matching the schema.
func (s *GeminiService) Generate(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return "", common.PermanentInput(fmt.Errorf("generation prompt cannot be empty"))
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	temp := req.Temperature
	if temp <= 0 {
		temp = s.opts.Temperature
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}

	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	// When a schema is provided, Gemini enforces JSON output matching it.
	if len(req.JSONSchema) > 0 {
		genaiSchema, err := convertToGenaiSchema(req.JSONSchema)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to convert output schema")
			// Continue without schema rather than failing
		} else if genaiSchema != nil {
			config.ResponseMIMEType = "application/json"
			config.ResponseSchema = genaiSchema
		}
	}

	var resp *genai.GenerateContentResponse
	var apiErr error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, generateCallTimeout)
		resp, apiErr = s.client.Models.GenerateContent(callCtx, s.opts.Model, contents, config)
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
			Msg("Retrying Gemini generation call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return "", common.Transient(fmt.Errorf("Gemini generation failed after %d attempts: %w", s.retry.MaxAttempts, apiErr))
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", common.Transient(fmt.Errorf("empty response from Gemini API"))
	}
	text := resp.Text()
	if text == "" {
		return "", common.Transient(fmt.Errorf("empty text in Gemini response"))
	}

	return text, nil
}

func (s *GeminiService) ModelName() string {
	return s.opts.Model
}

func (s *GeminiService) Dimensions() int {
	return s.opts.Dimensions
}

// Close clears the client reference; genai.Client has no explicit shutdown.
func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}

// convertToGenaiSchema converts a map[string]interface{} representation of a
// JSON schema to a genai.Schema structure.
func convertToGenaiSchema(schemaMap map[string]interface{}) (*genai.Schema, error) {
	if len(schemaMap) == 0 {
		return nil, nil
	}

	schema := &genai.Schema{}

	if typeStr, ok := schemaMap["type"].(string); ok {
		switch strings.ToLower(typeStr) {
		case "object":
			schema.Type = genai.TypeObject
		case "array":
			schema.Type = genai.TypeArray
		case "string":
			schema.Type = genai.TypeString
		case "number":
			schema.Type = genai.TypeNumber
		case "integer":
			schema.Type = genai.TypeInteger
		case "boolean":
			schema.Type = genai.TypeBoolean
		}
	}

	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}

	if enumVals, ok := schemaMap["enum"].([]interface{}); ok {
		for _, v := range enumVals {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	} else if enumVals, ok := schemaMap["enum"].([]string); ok {
		schema.Enum = enumVals
	}

	if reqVals, ok := schemaMap["required"].([]interface{}); ok {
		for _, v := range reqVals {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	} else if reqVals, ok := schemaMap["required"].([]string); ok {
		schema.Required = reqVals
	}

	if minVal, ok := schemaMap["minimum"].(int64); ok {
		f := float64(minVal)
		schema.Minimum = &f
	} else if minVal, ok := schemaMap["minimum"].(float64); ok {
		schema.Minimum = &minVal
	}
	if maxVal, ok := schemaMap["maximum"].(int64); ok {
		f := float64(maxVal)
		schema.Maximum = &f
	} else if maxVal, ok := schemaMap["maximum"].(float64); ok {
		schema.Maximum = &maxVal
	}

	if itemsMap, ok := schemaMap["items"].(map[string]interface{}); ok {
		itemSchema, err := convertToGenaiSchema(itemsMap)
		if err != nil {
			return nil, fmt.Errorf("failed to convert items schema: %w", err)
		}
		schema.Items = itemSchema
	}

	if propsMap, ok := schemaMap["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for propName, propVal := range propsMap {
			if propMap, ok := propVal.(map[string]interface{}); ok {
				propSchema, err := convertToGenaiSchema(propMap)
				if err != nil {
					return nil, fmt.Errorf("failed to convert property '%s': %w", propName, err)
				}
				schema.Properties[propName] = propSchema
			}
		}
	}

	return schema, nil
}
