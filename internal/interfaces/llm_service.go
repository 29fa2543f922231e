package interfaces

import "context"

// GenerateRequest is a provider-agnostic structured generation request.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	// JSONSchema, when set, instructs providers that support it to constrain
	// output to this schema and return application/json.
	JSONSchema map[string]interface{}
}

// LLMService generates embeddings and structured completions.
type LLMService interface {
	// EmbedBatch embeds texts in one provider call. The result has one
	// vector per input, each with exactly Dimensions() elements.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Generate runs one completion and returns the raw text.
	Generate(ctx context.Context, req *GenerateRequest) (string, error)

	ModelName() string
	Dimensions() int

	Close() error
}
