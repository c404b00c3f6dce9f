package llm

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

const heartbeatEvery = 50

// cleanJSONOutput strips markdown code fences around model output
func cleanJSONOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned != strings.TrimSpace(text) {
		log.Printf("🧹 Stripped markdown code blocks from output: %d -> %d chars", len(text), len(cleaned))
	}
	return cleaned
}

// schemaInstruction renders the output schema as a prompt suffix for
// providers without native structured output
func schemaInstruction(schema *OutputSchema) string {
	if schema == nil {
		return ""
	}
	body, err := json.MarshalIndent(schema.Schema, "", "  ")
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\n\nRespond with a single JSON object only, no prose. %s\nJSON Schema (%s):\n%s",
		schema.Description, schema.Name, string(body))
}

// messages extracts (role, content) pairs, skipping malformed items
func messages(inputArray []map[string]any) [][2]string {
	out := make([][2]string, 0, len(inputArray))
	for _, item := range inputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)
		if !hasRole || !hasContent {
			log.Printf("⚠️  Skipping invalid input item (missing role or content): %v", item)
			continue
		}
		out = append(out, [2]string{role, content})
	}
	return out
}

// withDefaultModel returns request, or a copy naming model when it names none
func withDefaultModel(request *GenerationRequest, model string) *GenerationRequest {
	if request.Model != "" {
		return request
	}
	r := *request
	r.Model = model
	return &r
}
