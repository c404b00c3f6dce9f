package llm

import (
	"context"
	"os"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicProvider(t *testing.T) {
	provider := NewAnthropicProvider("test-api-key")
	require.NotNil(t, provider)
	assert.Equal(t, "anthropic", provider.Name())
}

func TestAnthropicProvider_BuildParams(t *testing.T) {
	provider := NewAnthropicProvider("test-key")

	t.Run("defaults", func(t *testing.T) {
		params := provider.buildParams(&GenerationRequest{
			InputArray: []map[string]any{{"role": "user", "content": "hi"}},
		})

		assert.Equal(t, anthropic.Model(DefaultClaudeModel), params.Model)
		assert.Equal(t, int64(defaultClaudeMaxTokens), params.MaxTokens)
		assert.Len(t, params.Messages, 1)
		assert.Empty(t, params.System)
	})

	t.Run("developer messages fold into system", func(t *testing.T) {
		params := provider.buildParams(&GenerationRequest{
			Model:        "claude-3-haiku-20240307",
			SystemPrompt: "base prompt",
			MaxTokens:    100,
			InputArray: []map[string]any{
				{"role": "developer", "content": "extra rules"},
				{"role": "user", "content": "question"},
				{"role": "assistant", "content": "answer"},
			},
		})

		assert.Equal(t, anthropic.Model("claude-3-haiku-20240307"), params.Model)
		assert.Equal(t, int64(100), params.MaxTokens)
		require.Len(t, params.System, 1)
		assert.Contains(t, params.System[0].Text, "base prompt")
		assert.Contains(t, params.System[0].Text, "extra rules")
		require.Len(t, params.Messages, 2)
		assert.Equal(t, anthropic.MessageParamRoleUser, params.Messages[0].Role)
		assert.Equal(t, anthropic.MessageParamRoleAssistant, params.Messages[1].Role)
	})

	t.Run("schema appended to system", func(t *testing.T) {
		params := provider.buildParams(&GenerationRequest{
			InputArray:   []map[string]any{{"role": "user", "content": "hi"}},
			OutputSchema: RequirementsOutputSchema(),
		})

		require.Len(t, params.System, 1)
		assert.Contains(t, params.System[0].Text, "building_requirements")
	})
}

func TestAnthropicProvider_Generate_Integration(t *testing.T) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		t.Skip("ANTHROPIC_API_KEY not set, skipping integration test")
	}

	provider := NewAnthropicProvider(apiKey)
	resp, err := provider.Generate(context.Background(), &GenerationRequest{
		InputArray: []map[string]any{
			{"role": "user", "content": "Reply with the JSON object {\"response\": \"ok\", \"suggested_actions\": []}"},
		},
		OutputSchema: QueryOutputSchema(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RawOutput)
	assert.Greater(t, resp.Usage.TotalTokens, 0)
}
