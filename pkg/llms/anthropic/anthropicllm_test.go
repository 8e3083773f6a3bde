package anthropic_test

import (
	"testing"

	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llms/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessMessages(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You are a calculator."),
		llms.MessageFromTextParts(llms.RoleHuman, "What is 2+3?"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "add",
				Arguments: `{"a":2,"b":3}`,
			},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: "call_1",
			Name:       "add",
			Content:    `{"result":5}`,
		}),
	}

	chat, system, err := anthropic.ProcessMessages(msgs)
	require.NoError(t, err)
	assert.Equal(t, "You are a calculator.", system)
	require.Len(t, chat, 3)
	assert.EqualValues(t, "user", chat[0].Role)
	assert.EqualValues(t, "assistant", chat[1].Role)
	// tool results go back as user messages
	assert.EqualValues(t, "user", chat[2].Role)
}

func TestProcessMessages_MultipleSystem(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "first"),
		llms.MessageFromTextParts(llms.RoleSystem, "second"),
		llms.MessageFromTextParts(llms.RoleHuman, "hi"),
	}
	_, system, err := anthropic.ProcessMessages(msgs)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", system)
}

func TestProcessMessages_Invalid(t *testing.T) {
	_, _, err := anthropic.ProcessMessages([]llms.Message{
		llms.MessageFromTextParts("other", "hi"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, anthropic.ErrUnsupportedMessageType)

	_, err2 := anthropic.HandleToolMessage(llms.MessageFromTextParts(llms.RoleTool, "plain text"))
	require.Error(t, err2)
	assert.ErrorIs(t, err2, anthropic.ErrInvalidContentType)
}

func TestHandleAIMessage_BadArguments(t *testing.T) {
	_, err := anthropic.HandleAIMessage(llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "add",
			Arguments: "not json",
		},
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal tool call arguments")
}

func TestToTools(t *testing.T) {
	tools, err := anthropic.ToTools([]llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "add",
				Description: "Add two numbers.",
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
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "add", tools[0].OfTool.Name)
	assert.Equal(t, []string{"a", "b"}, tools[0].OfTool.InputSchema.Required)
	assert.Contains(t, tools[0].OfTool.InputSchema.Properties, "a")

	empty, err := anthropic.ToTools(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
