// Package agent implements a conversational LLM agent that answers user
// messages, calling tools through the tool manager until the model produces
// a plain reply.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/chatmodel"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llmutils"
	"github.com/effective-security/mcpagent/pkg/metricskey"
	"github.com/effective-security/mcpagent/store"
	"github.com/effective-security/mcpagent/toolmanager"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "agent")

var (
	// ErrToolLoopExceeded is returned when a turn hits the tool round limit,
	// or when the model keeps requesting unknown tools.
	ErrToolLoopExceeded = errors.New("tool loop exceeded")
	// ErrTurnInFlight is returned when Chat is called while another turn is
	// still running on the same Agent.
	ErrTurnInFlight = errors.New("turn already in flight")
)

const (
	// DefaultMaxToolRounds bounds the model-tool round trips per turn.
	DefaultMaxToolRounds = 10
	// DefaultSystemPrompt is used when no system prompt is configured.
	DefaultSystemPrompt = "You are a helpful assistant. Use the available tools when they help you answer."

	// maxConsecutiveNotFound bounds repeated requests for unknown tools.
	maxConsecutiveNotFound = 3
)

// AgentResponse is the result of one conversational turn.
type AgentResponse struct {
	// Response is the assistant's reply text.
	Response string `json:"response"`
	// ToolCalls records the tool executions of this turn, in order.
	ToolCalls []toolmanager.ToolCallRecord `json:"tool_calls,omitempty"`
	// ExecutionTime is the wall-clock duration of the turn in seconds.
	ExecutionTime float64 `json:"execution_time"`
	// TokensUsed is the total token count the provider reported, 0 when
	// the provider reports none.
	TokensUsed int `json:"tokens_used"`
	// Truncated is set when the turn was cut off by the tool round limit.
	Truncated bool `json:"truncated,omitempty"`
}

// Agent holds one conversation. It is not safe to run concurrent turns on
// one Agent; a second Chat call fails fast with ErrTurnInFlight.
type Agent struct {
	name          string
	llm           llms.Model
	tools         *toolmanager.Manager
	systemPrompt  string
	maxToolRounds int
	store         store.MessageStore

	inFlight atomic.Bool
	history  []llms.Message
}

// Option configures an Agent.
type Option func(*Agent)

// WithName sets the agent name used in logs and metrics.
func WithName(name string) Option {
	return func(a *Agent) { a.name = name }
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithMaxToolRounds bounds the model-tool round trips per turn.
func WithMaxToolRounds(n int) Option {
	return func(a *Agent) { a.maxToolRounds = n }
}

// WithStore persists the conversation, keyed by the chat ID from the
// chatmodel context.
func WithStore(s store.MessageStore) Option {
	return func(a *Agent) { a.store = s }
}

// New creates an Agent over the given model and tool manager.
func New(llm llms.Model, tools *toolmanager.Manager, opts ...Option) *Agent {
	a := &Agent{
		name:          "agent",
		llm:           llm,
		tools:         tools,
		systemPrompt:  DefaultSystemPrompt,
		maxToolRounds: DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.name
}

// ConversationHistory returns a copy of the conversation so far. The
// underlying history only ever grows.
func (a *Agent) ConversationHistory() []llms.Message {
	out := make([]llms.Message, len(a.history))
	copy(out, a.history)
	return out
}

// ExecuteToolDirectly runs a single tool without involving the model and
// without touching the conversation. Unknown names return
// toolmanager.ErrToolNotFound.
func (a *Agent) ExecuteToolDirectly(ctx context.Context, name string, args map[string]any) (*toolmanager.ToolCallRecord, error) {
	return a.tools.Execute(ctx, name, args)
}

// Chat runs one conversational turn: the user message is appended to the
// history, and the model is called repeatedly, executing requested tools in
// order, until it produces a plain reply or the round limit is hit. On
// ErrToolLoopExceeded the returned response carries the best partial reply
// with Truncated set.
func (a *Agent) Chat(ctx context.Context, message string, options ...llms.CallOption) (*AgentResponse, error) {
	if !a.inFlight.CompareAndSwap(false, true) {
		return nil, errors.WithStack(ErrTurnInFlight)
	}
	defer a.inFlight.Store(false)

	defer metricskey.PerfChatTurn.MeasureSince(time.Now(), a.name)

	res, err := a.run(ctx, message, options...)
	if err != nil {
		metricskey.StatsChatTurnsFailed.IncrCounter(1, a.name)
		return res, err
	}
	metricskey.StatsChatTurnsSucceeded.IncrCounter(1, a.name)
	return res, nil
}

func (a *Agent) run(ctx context.Context, message string, options ...llms.CallOption) (*AgentResponse, error) {
	if !a.llm.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
		return nil, errors.Newf("agent %s: the LLM does not support function calling", a.name)
	}

	userMessage := llms.MessageFromTextParts(llms.RoleHuman, message)
	a.append(ctx, userMessage)

	messageHistory := make([]llms.Message, 0, len(a.history)+1)
	messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleSystem, a.systemPrompt))
	messageHistory = append(messageHistory, a.history...)

	callOpts := append([]llms.CallOption{llms.WithTools(a.tools.LLMTools())}, options...)

	modelName := a.llm.GetName()
	res := &AgentResponse{}

	// measured from the first model call, not from turn entry
	started := time.Now()
	defer func() {
		res.ExecutionTime = time.Since(started).Seconds()
	}()

	rounds := 0
	consecutiveNotFound := 0
	for {
		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messageHistory)), a.name, modelName)

		resp, err := a.llm.GenerateContent(ctx, messageHistory, callOpts...)
		if err != nil {
			return res, errors.Wrap(err, "failed to generate content from LLM")
		}
		if len(resp.Choices) == 0 {
			return res, errors.Newf("agent %s: LLM returned no choices", a.name)
		}

		tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), a.name, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), a.name, modelName)
		metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), a.name, modelName)
		res.TokensUsed += int(tokensTotal)

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			res.Response = choice.Content
			a.append(ctx, llms.MessageFromTextParts(llms.RoleAI, res.Response))
			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", a.name,
				"status", "turn_complete",
				"rounds", rounds,
				"tool_calls", len(res.ToolCalls),
				"reply", slices.StringUpto(res.Response, 64),
			)
			return res, nil
		}

		notFound, history, err := a.executeToolCalls(ctx, messageHistory, choice, res)
		messageHistory = history
		if err != nil {
			return res, err
		}

		if notFound > 0 {
			consecutiveNotFound += notFound
		} else {
			consecutiveNotFound = 0
		}
		if consecutiveNotFound > maxConsecutiveNotFound {
			res.Truncated = true
			res.Response = bestPartialReply(choice)
			return res, errors.WithMessagef(ErrToolLoopExceeded,
				"agent %s: too many requests for unknown tools", a.name)
		}

		rounds++
		if rounds >= a.maxToolRounds {
			res.Truncated = true
			res.Response = bestPartialReply(choice)
			return res, errors.WithMessagef(ErrToolLoopExceeded,
				"agent %s: %d tool rounds executed", a.name, rounds)
		}
	}
}

// executeToolCalls runs the requested tool calls sequentially, in the order
// the model asked for them, and appends the exchange to both histories.
func (a *Agent) executeToolCalls(ctx context.Context, messageHistory []llms.Message, choice *llms.ContentChoice, res *AgentResponse) (int, []llms.Message, error) {
	toolCalls := make([]llms.ToolCall, 0, len(choice.ToolCalls))
	for i, tc := range choice.ToolCalls {
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("%s_%d", tc.FunctionCall.Name, i)
		}
		tc.Type = values.StringsCoalesce(tc.Type, "function")
		toolCalls = append(toolCalls, tc)
	}

	assistantMessage := llms.MessageFromToolCalls(llms.RoleAI, toolCalls...)
	messageHistory = append(messageHistory, assistantMessage)
	a.append(ctx, assistantMessage)

	notFound := 0
	for _, tc := range toolCalls {
		toolName := tc.FunctionCall.Name

		record, content, missing := a.executeOne(ctx, tc)
		res.ToolCalls = append(res.ToolCalls, *record)
		if missing {
			notFound++
		}

		toolResponse := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: tc.ID,
			Name:       toolName,
			Content:    content,
		})
		messageHistory = append(messageHistory, toolResponse)
		a.append(ctx, toolResponse)
	}
	return notFound, messageHistory, nil
}

// executeOne runs a single requested tool call. Failures, including unknown
// tool names, are recovered into the record; missing reports whether the
// tool does not exist.
func (a *Agent) executeOne(ctx context.Context, tc llms.ToolCall) (record *toolmanager.ToolCallRecord, content string, missing bool) {
	toolName := tc.FunctionCall.Name

	args, err := parseArguments(tc.FunctionCall.Arguments)
	if err != nil {
		record = &toolmanager.ToolCallRecord{
			ID:    tc.ID,
			Name:  toolName,
			Error: "Failed to unmarshal input, check the JSON schema and try again.",
		}
		return record, fmt.Sprintf("Tool call failed: %s", record.Error), false
	}

	record, err = a.tools.Execute(ctx, toolName, args)
	if err != nil {
		if errors.Is(err, toolmanager.ErrToolNotFound) {
			availableTools := strings.Join(a.tools.ToolNames(), ", ")
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", a.name,
				"status", "tool_not_found",
				"tool_name", toolName,
				"available_tools", availableTools,
			)
			record = &toolmanager.ToolCallRecord{
				ID:    tc.ID,
				Name:  toolName,
				Args:  args,
				Error: err.Error(),
			}
			content = fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", toolName, availableTools)
			return record, content, true
		}
		record = &toolmanager.ToolCallRecord{
			ID:    tc.ID,
			Name:  toolName,
			Args:  args,
			Error: err.Error(),
		}
	}

	if !record.Success {
		return record, fmt.Sprintf("Tool call failed: %s", record.Error), false
	}
	return record, record.Result, false
}

func parseArguments(input string) (map[string]any, error) {
	if input == "" {
		return nil, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal tool arguments")
	}
	return args, nil
}

// append grows the conversation history and mirrors the message into the
// store when one is configured.
func (a *Agent) append(ctx context.Context, msg llms.Message) {
	a.history = append(a.history, msg)
	if a.store != nil {
		if err := a.store.Add(ctx, msg); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", a.name,
				"reason", "failed to persist message",
				"chat_id", chatmodel.GetChatID(ctx),
				"err", err.Error(),
			)
		}
	}
}

func bestPartialReply(choice *llms.ContentChoice) string {
	if choice.Content != "" {
		return choice.Content
	}
	return "The conversation was cut off before the assistant produced a final reply."
}
