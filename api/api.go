// Package api exposes the agent over a JSON HTTP API.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/agent"
	"github.com/effective-security/mcpagent/chatmodel"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/store"
	"github.com/effective-security/mcpagent/toolmanager"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "api")

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	// ChatID continues an existing conversation. A new one is created
	// when empty.
	ChatID      string  `json:"chat_id,omitempty"`
	Message     string  `json:"message"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// ChatResponse is the body of a successful POST /v1/chat.
type ChatResponse struct {
	ChatID string `json:"chat_id"`
	agent.AgentResponse
}

// ToolsResponse is the body of GET /v1/tools.
type ToolsResponse = toolmanager.Catalog

// ConversationResponse is the body of GET /v1/conversations/{id}.
type ConversationResponse struct {
	ChatID   string         `json:"chat_id"`
	Messages []llms.Message `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the agent API. Each chat ID gets its own agent with its own
// conversation history; a chat runs one turn at a time.
type Handler struct {
	llm          llms.Model
	tools        *toolmanager.Manager
	systemPrompt string
	store        store.MessageStore

	lock     sync.Mutex
	sessions map[string]*agent.Agent
}

// Option configures the Handler.
type Option func(*Handler)

// WithSystemPrompt overrides the default system prompt of new sessions.
func WithSystemPrompt(prompt string) Option {
	return func(h *Handler) {
		h.systemPrompt = prompt
	}
}

// WithStore persists conversation messages of every session.
func WithStore(s store.MessageStore) Option {
	return func(h *Handler) {
		h.store = s
	}
}

// NewHandler creates a Handler.
func NewHandler(llm llms.Model, tools *toolmanager.Manager, opts ...Option) *Handler {
	h := &Handler{
		llm:      llm,
		tools:    tools,
		sessions: make(map[string]*agent.Agent),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the HTTP handler with all routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", h.handleChat)
	mux.HandleFunc("GET /v1/tools", h.handleTools)
	mux.HandleFunc("GET /v1/conversations/{id}", h.handleConversation)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return mux
}

func (h *Handler) session(chatID string) *agent.Agent {
	h.lock.Lock()
	defer h.lock.Unlock()

	if a, ok := h.sessions[chatID]; ok {
		return a
	}

	var opts []agent.Option
	if h.systemPrompt != "" {
		opts = append(opts, agent.WithSystemPrompt(h.systemPrompt))
	}
	if h.store != nil {
		opts = append(opts, agent.WithStore(h.store))
	}
	a := agent.New(h.llm, h.tools, opts...)
	h.sessions[chatID] = a
	return a
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.WithMessage(err, "invalid request body"))
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	chatID := req.ChatID
	if chatID == "" {
		chatID = chatmodel.NewChatID()
	}

	ctx := chatmodel.WithChatContext(r.Context(),
		chatmodel.NewChatContext(chatmodel.DefaultTenantID, chatID, nil))

	var callOpts []llms.CallOption
	if req.Model != "" {
		callOpts = append(callOpts, llms.WithModel(req.Model))
	}
	if req.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	}

	res, err := h.session(chatID).Chat(ctx, req.Message, callOpts...)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, agent.ErrTurnInFlight):
			status = http.StatusConflict
		case errors.Is(err, agent.ErrToolLoopExceeded):
			// partial response is still returned below
			status = http.StatusOK
		}
		if status != http.StatusOK {
			logger.ContextKV(ctx, xlog.ERROR, "chat_id", chatID, "err", err.Error())
			writeError(w, status, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, &ChatResponse{
		ChatID:        chatID,
		AgentResponse: *res,
	})
}

func (h *Handler) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tools.Describe())
}

func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")

	h.lock.Lock()
	a, ok := h.sessions[chatID]
	h.lock.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, errors.Newf("conversation not found: %s", chatID))
		return
	}

	writeJSON(w, http.StatusOK, &ConversationResponse{
		ChatID:   chatID,
		Messages: a.ConversationHistory(),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.KV(xlog.WARNING, "reason", "encode_response", "err", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
