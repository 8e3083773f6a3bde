// Package bedrockclient converts generic chat messages to the payload formats
// of models hosted on Amazon Bedrock.
package bedrockclient

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
)

// Client is a Bedrock client.
type Client struct {
	client *bedrockruntime.Client
}

// NewClient creates a new Bedrock client.
func NewClient(client *bedrockruntime.Client) *Client {
	return &Client{
		client: client,
	}
}

// Message is a chunk of content that will be sent to the model after being
// transformed to the provider's own wire format.
type Message struct {
	Role    llms.Role
	Content string
	// Type is one of "text", "tool_use", "tool_result"
	Type string

	// ToolCallID identifies the call for tool_use and tool_result chunks.
	ToolCallID string
	// ToolName is the tool being called, for tool_use chunks.
	ToolName string
	// ToolInput is the JSON arguments of the call, for tool_use chunks.
	ToolInput string
}

// getProvider extracts the provider name from a model ID. It handles both
// direct model IDs (anthropic.claude-3-sonnet-20240229-v1:0) and inference
// profiles with a region prefix (us.anthropic.claude-3-5-sonnet-20241022-v2:0).
func getProvider(modelID string) string {
	parts := strings.Split(modelID, ".")
	if len(parts) >= 2 {
		if len(parts[0]) == 2 && strings.ToLower(parts[0]) == parts[0] {
			return parts[1]
		}
		return parts[0]
	}
	return parts[0]
}

// CreateCompletion sends the messages to the model and returns the response.
func (c *Client) CreateCompletion(ctx context.Context,
	modelID string,
	messages []Message,
	options llms.CallOptions,
) (*llms.ContentResponse, error) {
	provider := getProvider(modelID)
	switch provider {
	case "anthropic":
		return createAnthropicCompletion(ctx, c.client, modelID, messages, options)
	default:
		return nil, errors.Newf("bedrock: unsupported provider %q", provider)
	}
}

func getMaxTokens(maxTokens, defaultValue int) int {
	if maxTokens <= 0 {
		return defaultValue
	}
	return maxTokens
}
