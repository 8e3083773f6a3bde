// Package bedrock implements the llms.Model interface over Amazon Bedrock.
package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llms/bedrock/internal/bedrockclient"
)

const defaultModel = ModelAnthropicClaudeV35Sonnet

// LLM is a Bedrock LLM implementation.
type LLM struct {
	modelID string
	client  *bedrockclient.Client
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Bedrock LLM implementation.
func New(opts ...Option) (*LLM, error) {
	o, c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{
		client:  c,
		modelID: o.modelID,
	}, nil
}

func newClient(opts ...Option) (*options, *bedrockclient.Client, error) {
	options := &options{
		modelID: defaultModel,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.client == nil {
		cfg, err := config.LoadDefaultConfig(context.Background(), options.configOpts...)
		if err != nil {
			return options, nil, errors.Wrap(err, "bedrock: failed to load AWS config")
		}
		options.client = bedrockruntime.NewFromConfig(cfg)
	}

	return options, bedrockclient.NewClient(options.client), nil
}

// GetName implements the Model interface.
func (l *LLM) GetName() string {
	return l.modelID
}

// GetProviderType implements the Model interface.
func (l *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderBedrock
}

// GenerateContent implements the Model interface.
func (l *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: l.modelID,
	}
	for _, opt := range options {
		opt(&opts)
	}

	m, err := processMessages(messages)
	if err != nil {
		return nil, err
	}

	return l.client.CreateCompletion(ctx, opts.Model, m, opts)
}

func processMessages(messages []llms.Message) ([]bedrockclient.Message, error) {
	bedrockMsgs := make([]bedrockclient.Message, 0, len(messages))

	for _, m := range messages {
		for _, part := range m.Parts {
			switch part := part.(type) {
			case llms.TextContent:
				bedrockMsgs = append(bedrockMsgs, bedrockclient.Message{
					Role:    m.Role,
					Content: part.Text,
					Type:    bedrockclient.AnthropicMessageTypeText,
				})
			case llms.ToolCall:
				msg := bedrockclient.Message{
					Role:       m.Role,
					Type:       bedrockclient.AnthropicMessageTypeToolUse,
					ToolCallID: part.ID,
				}
				if part.FunctionCall != nil {
					msg.ToolName = part.FunctionCall.Name
					msg.ToolInput = part.FunctionCall.Arguments
				}
				bedrockMsgs = append(bedrockMsgs, msg)
			case llms.ToolCallResponse:
				bedrockMsgs = append(bedrockMsgs, bedrockclient.Message{
					Role:       m.Role,
					Content:    part.Content,
					Type:       bedrockclient.AnthropicMessageTypeToolResult,
					ToolCallID: part.ToolCallID,
				})
			default:
				return nil, errors.New("bedrock: unsupported message type")
			}
		}
	}
	return bedrockMsgs, nil
}
