package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		model    string
		expected ProviderType
	}{
		{"gemini-2.5-flash", ProviderGemini},
		{"gemini-embedding-001", ProviderGemini},
		{"gemini/gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-flash", ProviderGemini},
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"claude/claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-sonnet-4-20250514", ProviderClaude},
		{"CLAUDE-opus-4", ProviderClaude},
		{"text-embedding-3-small", ProviderGemini},
		{"", ProviderGemini},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectProvider(tt.model))
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", NormalizeModel("gemini/gemini-2.5-flash"))
	assert.Equal(t, "claude-sonnet-4-20250514", NormalizeModel("claude/claude-sonnet-4-20250514"))
	assert.Equal(t, "gemini-2.5-flash", NormalizeModel("gemini-2.5-flash"))
}

func TestConvertToGenaiSchema(t *testing.T) {
	schema, err := convertToGenaiSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"value": map[string]interface{}{
				"type":        "number",
				"description": "extracted numeric value",
			},
			"confidence": map[string]interface{}{
				"type":    "number",
				"minimum": float64(0),
				"maximum": float64(1),
			},
			"source_pages": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "integer",
				},
			},
		},
		"required": []interface{}{"value", "confidence"},
	})
	require.NoError(t, err)
	require.NotNil(t, schema)

	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.ElementsMatch(t, []string{"value", "confidence"}, schema.Required)

	require.Contains(t, schema.Properties, "confidence")
	conf := schema.Properties["confidence"]
	require.NotNil(t, conf.Minimum)
	require.NotNil(t, conf.Maximum)
	assert.Equal(t, float64(0), *conf.Minimum)
	assert.Equal(t, float64(1), *conf.Maximum)

	require.Contains(t, schema.Properties, "source_pages")
	pages := schema.Properties["source_pages"]
	assert.Equal(t, genai.TypeArray, pages.Type)
	require.NotNil(t, pages.Items)
	assert.Equal(t, genai.TypeInteger, pages.Items.Type)
}

func TestConvertToGenaiSchemaEmpty(t *testing.T) {
	schema, err := convertToGenaiSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, schema)
}
