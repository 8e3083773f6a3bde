package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/mcpagent/api"
	"github.com/effective-security/mcpagent/calcserver"
	"github.com/effective-security/mcpagent/mocks/mockllms"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/store"
	"github.com/effective-security/mcpagent/toolmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestHandler(t *testing.T, llm llms.Model) http.Handler {
	t.Helper()
	reg, err := calcserver.NewRegistry(calcserver.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	manager := toolmanager.New(reg)
	require.NoError(t, manager.Discover(context.Background()))

	h := api.NewHandler(llm, manager, api.WithStore(store.NewMemoryStore()))
	return h.Routes()
}

func newMockModel(t *testing.T) *mockllms.MockModel {
	t.Helper()
	ctrl := gomock.NewController(t)
	llm := mockllms.NewMockModel(ctrl)
	llm.EXPECT().GetProviderType().Return(llms.ProviderAnthropic).AnyTimes()
	llm.EXPECT().GetName().Return("mock-model").AnyTimes()
	return llm
}

func textChoice(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:    text,
				StopReason: "end_turn",
				GenerationInfo: map[string]any{
					"InputTokens":  int64(10),
					"OutputTokens": int64(5),
					"TotalTokens":  int64(15),
				},
			},
		},
	}
}

func toolCallChoice(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				StopReason: "tool_use",
				ToolCalls: []llms.ToolCall{
					{
						ID:   id,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      name,
							Arguments: args,
						},
					},
				},
			},
		},
	}
}

func postChat(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	js, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(js))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, newMockModel(t))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestTools(t *testing.T) {
	h := newTestHandler(t, newMockModel(t))
	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var catalog api.ToolsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.Contains(t, catalog.Tools, "calculator")
	assert.Contains(t, catalog.Tools, "utility")
}

func TestChat(t *testing.T) {
	llm := newMockModel(t)
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textChoice("Hello there!"), nil)
	h := newTestHandler(t, llm)

	w := postChat(t, h, api.ChatRequest{Message: "hi"})
	require.Equal(t, http.StatusOK, w.Code)

	var res api.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.ChatID)
	assert.Equal(t, "Hello there!", res.Response)
	assert.Equal(t, 15, res.TokensUsed)
}

func TestChat_Conversation(t *testing.T) {
	llm := newMockModel(t)
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textChoice("first"), nil)
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textChoice("second"), nil)
	h := newTestHandler(t, llm)

	w := postChat(t, h, api.ChatRequest{Message: "one"})
	require.Equal(t, http.StatusOK, w.Code)
	var res api.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	w = postChat(t, h, api.ChatRequest{ChatID: res.ChatID, Message: "two"})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/"+res.ChatID, nil)
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)

	var conv api.ConversationResponse
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &conv))
	assert.Equal(t, res.ChatID, conv.ChatID)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, llms.RoleHuman, conv.Messages[0].Role)
	assert.Equal(t, llms.RoleAI, conv.Messages[1].Role)
}

func TestChat_BadRequest(t *testing.T) {
	h := newTestHandler(t, newMockModel(t))

	w := postChat(t, h, api.ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "message is required")

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader([]byte("not json")))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestChat_ToolLoopTruncated(t *testing.T) {
	llm := newMockModel(t)
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallChoice("call_x", "no_such_tool", `{}`), nil).
		Times(4)
	h := newTestHandler(t, llm)

	w := postChat(t, h, api.ChatRequest{Message: "use the magic tool"})
	require.Equal(t, http.StatusOK, w.Code)

	var res api.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Truncated)
	assert.NotEmpty(t, res.Response)
}

func TestChat_TurnInFlight(t *testing.T) {
	llm := newMockModel(t)
	started := make(chan struct{})
	release := make(chan struct{})
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			close(started)
			<-release
			return textChoice("done"), nil
		})
	h := newTestHandler(t, llm)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- postChat(t, h, api.ChatRequest{ChatID: "chat1", Message: "slow"})
	}()
	<-started

	w := postChat(t, h, api.ChatRequest{ChatID: "chat1", Message: "impatient"})
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	w = <-first
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConversation_NotFound(t *testing.T) {
	h := newTestHandler(t, newMockModel(t))
	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/unknown", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "conversation not found")
}
