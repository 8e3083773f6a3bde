package bedrockclient

import (
	"testing"

	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProvider(t *testing.T) {
	tests := []struct {
		name     string
		modelID  string
		expected string
	}{
		{
			name:     "Direct Anthropic model ID",
			modelID:  "anthropic.claude-3-sonnet-20240229-v1:0",
			expected: "anthropic",
		},
		{
			name:     "Inference Profile with US region",
			modelID:  "us.anthropic.claude-3-5-sonnet-20241022-v2:0",
			expected: "anthropic",
		},
		{
			name:     "Inference Profile with EU region",
			modelID:  "eu.anthropic.claude-3-haiku-20240307-v1:0",
			expected: "anthropic",
		},
		{
			name:     "Direct Amazon model ID",
			modelID:  "amazon.titan-text-premier-v1:0",
			expected: "amazon",
		},
		{
			name:     "Single part model ID",
			modelID:  "anthropic",
			expected: "anthropic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := getProvider(tt.modelID)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestProcessInputMessagesAnthropic(t *testing.T) {
	msgs := []Message{
		{Role: llms.RoleSystem, Content: "You are terse.", Type: AnthropicMessageTypeText},
		{Role: llms.RoleHuman, Content: "What is 2+3?", Type: AnthropicMessageTypeText},
		{Role: llms.RoleAI, Type: AnthropicMessageTypeToolUse, ToolCallID: "toolu_1", ToolName: "add", ToolInput: `{"a":2,"b":3}`},
		{Role: llms.RoleTool, Content: `{"result":5}`, Type: AnthropicMessageTypeToolResult, ToolCallID: "toolu_1"},
	}

	input, system, err := processInputMessagesAnthropic(msgs)
	require.NoError(t, err)
	assert.Equal(t, "You are terse.", system)
	require.Len(t, input, 3)

	assert.Equal(t, AnthropicRoleUser, input[0].Role)
	assert.Equal(t, "What is 2+3?", input[0].Content[0].Text)

	assert.Equal(t, AnthropicRoleAssistant, input[1].Role)
	assert.Equal(t, AnthropicMessageTypeToolUse, input[1].Content[0].Type)
	assert.Equal(t, "add", input[1].Content[0].Name)

	assert.Equal(t, AnthropicRoleUser, input[2].Role)
	assert.Equal(t, AnthropicMessageTypeToolResult, input[2].Content[0].Type)
	assert.Equal(t, "toolu_1", input[2].Content[0].ToolUseID)
}

func TestToAnthropicTools(t *testing.T) {
	tools, err := toAnthropicTools([]llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "add",
				Description: "Add two numbers",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"a": map[string]any{"type": "number"},
						"b": map[string]any{"type": "number"},
					},
					"required": []any{"a", "b"},
				},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "add", tools[0].Name)
	assert.Equal(t, "object", tools[0].InputSchema.Type)
	assert.Len(t, tools[0].InputSchema.Properties, 2)
	assert.Equal(t, []string{"a", "b"}, tools[0].InputSchema.Required)
}
