// Package openai implements the llms.Model interface over the OpenAI,
// Azure OpenAI and compatible chat completion APIs.
package openai

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llms/openai/internal/openaiclient"
)

var (
	ErrEmptyResponse = errors.New("openai: no response")
	ErrMissingToken  = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")
)

const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"
	RoleTool      = "tool"
)

// ChatMessage is a message in the OpenAI wire format.
type ChatMessage = openaiclient.ChatMessage

// LLM is an OpenAI chat model.
type LLM struct {
	client   *openaiclient.Client
	provider ProviderType
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o, c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{
		client:   c,
		provider: o.provider,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.client.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	switch o.provider {
	case ProviderAzure:
		return llms.ProviderAzure
	case ProviderAzureAD:
		return llms.ProviderAzureAD
	case ProviderPerplexity:
		return llms.ProviderPerplexity
	default:
		return llms.ProviderOpenAI
	}
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs, err := ProcessMessages(messages)
	if err != nil {
		return nil, err
	}

	req := &openaiclient.ChatRequest{
		Model:               opts.Model,
		Messages:            chatMsgs,
		Temperature:         opts.Temperature,
		TopP:                opts.TopP,
		MaxCompletionTokens: opts.MaxTokens,
		StopWords:           opts.StopWords,
		Seed:                opts.Seed,
		ToolChoice:          opts.ToolChoice,
		Metadata:            opts.Metadata,
	}
	if opts.JSONMode {
		req.ResponseFormat = openaiclient.ResponseFormatJSON
	}

	for _, tool := range opts.Tools {
		t, err := toolFromTool(tool)
		if err != nil {
			return nil, errors.WithMessage(err, "openai: unsupported tool")
		}
		req.Tools = append(req.Tools, t)
	}

	result, err := o.client.CreateChat(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: c.FinishReason,
			GenerationInfo: map[string]any{
				"CompletionTokens": result.Usage.CompletionTokens,
				"PromptTokens":     result.Usage.PromptTokens,
				"TotalTokens":      result.Usage.TotalTokens,
				"ID":               result.ID,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		choices[i] = choice
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// ProcessMessages converts generic messages to the OpenAI wire format.
func ProcessMessages(messages []llms.Message) ([]*ChatMessage, error) {
	chatMsgs := make([]*ChatMessage, 0, len(messages))
	for _, mc := range messages {
		msg := &ChatMessage{}
		switch mc.Role {
		case llms.RoleSystem:
			msg.Role = RoleSystem
			msg.Content = textParts(mc)
		case llms.RoleHuman:
			msg.Role = RoleUser
			msg.Content = textParts(mc)
		case llms.RoleAI:
			msg.Role = RoleAssistant
			msg.Content = textParts(mc)
			for _, part := range mc.Parts {
				if tc, ok := part.(llms.ToolCall); ok {
					msg.ToolCalls = append(msg.ToolCalls, toolCallFromToolCall(tc))
				}
			}
		case llms.RoleTool:
			msg.Role = RoleTool
			if len(mc.Parts) != 1 {
				return nil, errors.Errorf("openai: expected exactly one part for role %v, got %v", mc.Role, len(mc.Parts))
			}
			tr, ok := mc.Parts[0].(llms.ToolCallResponse)
			if !ok {
				return nil, errors.Errorf("openai: expected part of type ToolCallResponse for role %v, got %T", mc.Role, mc.Parts[0])
			}
			msg.ToolCallID = tr.ToolCallID
			msg.Content = tr.Content
		default:
			return nil, errors.Errorf("openai: role %v not supported", mc.Role)
		}
		chatMsgs = append(chatMsgs, msg)
	}
	return chatMsgs, nil
}

func textParts(mc llms.Message) string {
	var text string
	for _, part := range mc.Parts {
		if tp, ok := part.(llms.TextContent); ok {
			if text != "" {
				text += "\n"
			}
			text += tp.Text
		}
	}
	return text
}

// toolFromTool converts an llms.Tool to the OpenAI wire format.
func toolFromTool(t llms.Tool) (openaiclient.Tool, error) {
	if t.Type != string(openaiclient.ToolTypeFunction) || t.Function == nil {
		return openaiclient.Tool{}, errors.Errorf("tool type %q not supported", t.Type)
	}
	return openaiclient.Tool{
		Type: openaiclient.ToolTypeFunction,
		Function: openaiclient.FunctionDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		},
	}, nil
}

func toolCallFromToolCall(tc llms.ToolCall) openaiclient.ToolCall {
	call := openaiclient.ToolCall{
		ID:   tc.ID,
		Type: openaiclient.ToolType(tc.Type),
	}
	if tc.FunctionCall != nil {
		call.Function = openaiclient.ToolFunction{
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		}
	}
	return call
}
