package agent_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/effective-security/mcpagent/agent"
	"github.com/effective-security/mcpagent/calcserver"
	"github.com/effective-security/mcpagent/chatmodel"
	"github.com/effective-security/mcpagent/mocks/mockllms"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/store"
	"github.com/effective-security/mcpagent/toolmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestManager(t *testing.T) *toolmanager.Manager {
	t.Helper()
	reg, err := calcserver.NewRegistry(calcserver.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	m := toolmanager.New(reg)
	require.NoError(t, m.Discover(context.Background()))
	return m
}

func newMockModel(t *testing.T) *mockllms.MockModel {
	t.Helper()
	ctrl := gomock.NewController(t)
	llm := mockllms.NewMockModel(ctrl)
	llm.EXPECT().GetProviderType().Return(llms.ProviderAnthropic).AnyTimes()
	llm.EXPECT().GetName().Return("mock-model").AnyTimes()
	return llm
}

func chatCtx() context.Context {
	return chatmodel.WithChatContext(context.Background(),
		chatmodel.NewChatContext("t1", "chat1", nil))
}

func toolCallChoice(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			StopReason: "tool_use",
			ToolCalls: []llms.ToolCall{{
				ID:   id,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			}},
			GenerationInfo: map[string]any{
				"InputTokens":  10,
				"OutputTokens": 5,
				"TotalTokens":  15,
			},
		}},
	}
}

func textChoice(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:    text,
			StopReason: "end_turn",
			GenerationInfo: map[string]any{
				"InputTokens":  20,
				"OutputTokens": 7,
				"TotalTokens":  27,
			},
		}},
	}
}

func TestChat_ToolFlow(t *testing.T) {
	llm := newMockModel(t)
	manager := newTestManager(t)

	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				require.NotEmpty(t, messages)
				assert.Equal(t, llms.RoleSystem, messages[0].Role)
				assert.Equal(t, llms.RoleHuman, messages[len(messages)-1].Role)
				return toolCallChoice("call_1", "add", `{"a":15,"b":27}`), nil
			}),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				// the tool response must be in the history the model sees
				last := messages[len(messages)-1]
				require.Equal(t, llms.RoleTool, last.Role)
				assert.Contains(t, last.GetContent(), "42")
				return textChoice("15 + 27 = 42"), nil
			}),
	)

	a := agent.New(llm, manager)
	res, err := a.Chat(chatCtx(), "What is 15 plus 27?")
	require.NoError(t, err)

	assert.Equal(t, "15 + 27 = 42", res.Response)
	assert.False(t, res.Truncated)
	assert.Equal(t, 42, res.TokensUsed)
	assert.GreaterOrEqual(t, res.ExecutionTime, 0.0)

	require.Len(t, res.ToolCalls, 1)
	rec := res.ToolCalls[0]
	assert.Equal(t, "add", rec.Name)
	assert.True(t, rec.Success)
	assert.Contains(t, rec.Result, "42")

	// human, assistant tool call, tool response, final reply
	hist := a.ConversationHistory()
	require.Len(t, hist, 4)
	assert.Equal(t, llms.RoleHuman, hist[0].Role)
	assert.Equal(t, llms.RoleAI, hist[1].Role)
	assert.Equal(t, llms.RoleTool, hist[2].Role)
	assert.Equal(t, llms.RoleAI, hist[3].Role)
}

func TestChat_ToolFailureRecovered(t *testing.T) {
	llm := newMockModel(t)
	manager := newTestManager(t)

	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolCallChoice("call_1", "divide", `{"a":1,"b":0}`), nil),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				last := messages[len(messages)-1]
				assert.Contains(t, last.GetContent(), "Tool call failed")
				return textChoice("Division by zero is undefined."), nil
			}),
	)

	a := agent.New(llm, manager)
	res, err := a.Chat(chatCtx(), "What is 1 divided by 0?")
	require.NoError(t, err)

	assert.Equal(t, "Division by zero is undefined.", res.Response)
	require.Len(t, res.ToolCalls, 1)
	assert.False(t, res.ToolCalls[0].Success)
	assert.Contains(t, res.ToolCalls[0].Error, "cannot divide by zero")
}

func TestChat_UnknownToolLoop(t *testing.T) {
	llm := newMockModel(t)
	manager := newTestManager(t)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallChoice("call_x", "no_such_tool", `{}`), nil).
		Times(4)

	a := agent.New(llm, manager)
	res, err := a.Chat(chatCtx(), "use the magic tool")
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrToolLoopExceeded)

	require.NotNil(t, res)
	assert.True(t, res.Truncated)
	assert.NotEmpty(t, res.Response)
	require.Len(t, res.ToolCalls, 4)
	for _, rec := range res.ToolCalls {
		assert.False(t, rec.Success)
		assert.Contains(t, rec.Error, "no_such_tool")
	}
}

func TestChat_MaxToolRounds(t *testing.T) {
	llm := newMockModel(t)
	manager := newTestManager(t)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallChoice("call_1", "add", `{"a":1,"b":1}`), nil).
		Times(2)

	a := agent.New(llm, manager, agent.WithMaxToolRounds(2))
	res, err := a.Chat(chatCtx(), "keep adding")
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrToolLoopExceeded)

	require.NotNil(t, res)
	assert.True(t, res.Truncated)
	assert.Len(t, res.ToolCalls, 2)
	assert.Greater(t, res.ExecutionTime, 0.0)
}

func TestChat_TurnInFlight(t *testing.T) {
	llm := newMockModel(t)
	manager := newTestManager(t)

	release := make(chan struct{})
	started := make(chan struct{})
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			close(started)
			<-release
			return textChoice("done"), nil
		})

	a := agent.New(llm, manager)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := a.Chat(chatCtx(), "slow question")
		assert.NoError(t, err)
	}()

	<-started
	_, err := a.Chat(chatCtx(), "impatient question")
	assert.ErrorIs(t, err, agent.ErrTurnInFlight)

	close(release)
	<-done
}

func TestChat_InvalidToolArguments(t *testing.T) {
	llm := newMockModel(t)
	manager := newTestManager(t)

	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolCallChoice("call_1", "add", `not json`), nil),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textChoice("I could not use the tool."), nil),
	)

	a := agent.New(llm, manager)
	res, err := a.Chat(chatCtx(), "add things")
	require.NoError(t, err)

	require.Len(t, res.ToolCalls, 1)
	assert.False(t, res.ToolCalls[0].Success)
	assert.Contains(t, res.ToolCalls[0].Error, "Failed to unmarshal input")
}

func TestChat_WithStore(t *testing.T) {
	llm := newMockModel(t)
	manager := newTestManager(t)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textChoice("Hello!"), nil)

	s := store.NewMemoryStore()
	a := agent.New(llm, manager, agent.WithStore(s))

	ctx := chatCtx()
	_, err := a.Chat(ctx, "Hi")
	require.NoError(t, err)

	msgs := s.Messages(ctx)
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.RoleHuman, msgs[0].Role)
	assert.Equal(t, llms.RoleAI, msgs[1].Role)
}

func TestConversationHistory_AppendOnly(t *testing.T) {
	llm := newMockModel(t)
	manager := newTestManager(t)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textChoice("first"), nil)
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textChoice("second"), nil)

	a := agent.New(llm, manager)
	ctx := chatCtx()

	_, err := a.Chat(ctx, "one")
	require.NoError(t, err)
	before := a.ConversationHistory()

	_, err = a.Chat(ctx, "two")
	require.NoError(t, err)
	after := a.ConversationHistory()

	require.Greater(t, len(after), len(before))
	for i := range before {
		assert.Equal(t, before[i], after[i])
	}

	// the returned copy does not alias the agent's history
	after[0] = llms.MessageFromTextParts(llms.RoleHuman, "mutated")
	assert.NotEqual(t, after[0], a.ConversationHistory()[0])
}

func TestExecuteToolDirectly(t *testing.T) {
	llm := newMockModel(t)
	manager := newTestManager(t)
	a := agent.New(llm, manager)

	rec, err := a.ExecuteToolDirectly(chatCtx(), "add", map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.True(t, rec.Success)
	assert.Contains(t, rec.Result, "5")
	assert.Empty(t, a.ConversationHistory())

	_, err = a.ExecuteToolDirectly(chatCtx(), "missing", nil)
	assert.ErrorIs(t, err, toolmanager.ErrToolNotFound)
}

func TestAgentResponse_JSONRoundTrip(t *testing.T) {
	llm := newMockModel(t)
	manager := newTestManager(t)

	multiCall := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			StopReason: "tool_use",
			ToolCalls: []llms.ToolCall{
				{
					ID:   "call_1",
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      "add",
						Arguments: `{"a":2,"b":3}`,
					},
				},
				{
					ID:   "call_2",
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      "multiply",
						Arguments: `{"a":4,"b":5}`,
					},
				},
			},
			GenerationInfo: map[string]any{"TotalTokens": 15},
		}},
	}
	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(multiCall, nil),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textChoice("5 and 20"), nil),
	)

	a := agent.New(llm, manager)
	res, err := a.Chat(chatCtx(), "add 2+3 and multiply 4*5")
	require.NoError(t, err)
	require.Len(t, res.ToolCalls, 2)
	assert.Greater(t, res.ExecutionTime, 0.0)

	js, err := json.Marshal(res)
	require.NoError(t, err)

	var got agent.AgentResponse
	require.NoError(t, json.Unmarshal(js, &got))

	assert.Equal(t, res.Response, got.Response)
	assert.Equal(t, res.ExecutionTime, got.ExecutionTime)
	assert.Equal(t, res.TokensUsed, got.TokensUsed)
	assert.Equal(t, res.Truncated, got.Truncated)

	// tool call order and fields survive serialization
	require.Len(t, got.ToolCalls, 2)
	assert.Equal(t, "add", got.ToolCalls[0].Name)
	assert.Equal(t, "multiply", got.ToolCalls[1].Name)
	assert.Equal(t, res.ToolCalls, got.ToolCalls)
}
