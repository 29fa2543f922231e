package extraction

import (
	"fmt"
	"strings"

	"github.com/greenarc/esgpipe/internal/models"
)

const systemPrompt = `You are an analyst extracting disclosed ESG values from Indian corporate sustainability reports. You are given excerpts from one company's report and a single disclosure parameter to find. Report only what the text states; never estimate or compute values the company did not disclose.`

// buildPrompt renders the retrieval hits and format instructions for one
// indicator. Excerpts carry their page numbers so the model can cite them.
func buildPrompt(ind models.Indicator, chunks []models.ScoredChunk) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Disclosure parameter: %s\n", ind.ParameterName)
	if ind.Unit != "" {
		fmt.Fprintf(&b, "Expected unit: %s\n", ind.Unit)
	}

	b.WriteString("\nReport excerpts:\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "\n[Page %d]\n%s\n", c.Page, c.Text)
	}

	b.WriteString(`
Find the value disclosed for the parameter in the excerpts.

Rules:
- Use only the excerpts above; never infer a value that is not stated.
- Prefer the current reporting year when the text tabulates several years.
- confidence is 0.0 when the parameter is not disclosed in the excerpts, up to 1.0 for an exact match.
- numeric_value carries the plain number without separators or units; omit it when the parameter is narrative.
- source_pages lists the page numbers the value came from.

Respond with a single JSON object, no markdown fences:
{"value": "...", "numeric_value": 123.4, "unit": "...", "confidence": 0.9, "source_pages": [12], "reasoning": "..."}`)

	return b.String()
}

// responseSchema constrains providers that support schema-bound output.
func responseSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"value": map[string]interface{}{
				"type":        "string",
				"description": "The disclosed value as written in the report, or empty when not found",
			},
			"numeric_value": map[string]interface{}{
				"type":        "number",
				"description": "The value as a plain number, when the parameter is numeric",
			},
			"unit": map[string]interface{}{
				"type": "string",
			},
			"confidence": map[string]interface{}{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
			"source_pages": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "integer"},
			},
			"reasoning": map[string]interface{}{
				"type": "string",
			},
		},
		"required": []string{"value", "confidence"},
	}
}
