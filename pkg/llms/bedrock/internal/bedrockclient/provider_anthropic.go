package bedrockclient

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llmutils"
)

// Ref: https://docs.aws.amazon.com/bedrock/latest/userguide/model-parameters-anthropic-claude-messages.html

// anthropicTextGenerationInputContent is a single content block in the input.
type anthropicTextGenerationInputContent struct {
	// Type is one of "text", "tool_use", "tool_result".
	Type string `json:"type"`
	// Text content. Required if type is "text"
	Text string `json:"text,omitempty"`
	// Tool use fields
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`
	// Tool result fields
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type anthropicTextGenerationInputMessage struct {
	// Role is "user" or "assistant". The system prompt goes in the system
	// field of the input, not in a message.
	Role    string                                `json:"role"`
	Content []anthropicTextGenerationInputContent `json:"content"`
}

type anthropicTool struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	InputSchema anthropicInputSchema `json:"input_schema"`
}

type anthropicInputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// anthropicTextGenerationInput is the InvokeModel payload.
type anthropicTextGenerationInput struct {
	AnthropicVersion string                                 `json:"anthropic_version"`
	MaxTokens        int                                    `json:"max_tokens"`
	System           string                                 `json:"system,omitempty"`
	Messages         []*anthropicTextGenerationInputMessage `json:"messages"`
	Temperature      float64                                `json:"temperature,omitempty"`
	TopP             float64                                `json:"top_p,omitempty"`
	TopK             int                                    `json:"top_k,omitempty"`
	StopSequences    []string                               `json:"stop_sequences,omitempty"`
	Tools            []anthropicTool                        `json:"tools,omitempty"`
}

type anthropicTextGenerationOutputContent struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`
}

type anthropicTextGenerationOutput struct {
	Type         string                                 `json:"type"`
	Role         string                                 `json:"role"`
	Content      []anthropicTextGenerationOutputContent `json:"content"`
	StopReason   string                                 `json:"stop_reason"`
	StopSequence string                                 `json:"stop_sequence"`
	Usage        struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Finish reasons reported by the model.
const (
	AnthropicCompletionReasonEndTurn      = "end_turn"
	AnthropicCompletionReasonMaxTokens    = "max_tokens"
	AnthropicCompletionReasonStopSequence = "stop_sequence"
	AnthropicCompletionReasonToolUse      = "tool_use"
)

// AnthropicLatestVersion is the anthropic_version value Bedrock expects.
const AnthropicLatestVersion = "bedrock-2023-05-31"

// Role attribute for the anthropic message.
const (
	AnthropicSystem        = "system"
	AnthropicRoleUser      = "user"
	AnthropicRoleAssistant = "assistant"
)

// Type attribute for the anthropic message.
const (
	AnthropicMessageTypeText       = "text"
	AnthropicMessageTypeToolUse    = "tool_use"
	AnthropicMessageTypeToolResult = "tool_result"
)

func createAnthropicCompletion(ctx context.Context,
	client *bedrockruntime.Client,
	modelID string,
	messages []Message,
	options llms.CallOptions,
) (*llms.ContentResponse, error) {
	inputContents, systemPrompt, err := processInputMessagesAnthropic(messages)
	if err != nil {
		return nil, err
	}

	tools, err := toAnthropicTools(options.Tools)
	if err != nil {
		return nil, err
	}

	input := anthropicTextGenerationInput{
		AnthropicVersion: AnthropicLatestVersion,
		MaxTokens:        getMaxTokens(options.MaxTokens, 2048),
		System:           systemPrompt,
		Messages:         inputContents,
		Temperature:      options.Temperature,
		TopP:             options.TopP,
		TopK:             options.TopK,
		StopSequences:    options.StopWords,
		Tools:            tools,
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}

	modelInput := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Accept:      aws.String("*/*"),
		ContentType: aws.String("application/json"),
		Body:        body,
	}
	resp, err := client.InvokeModel(ctx, modelInput)
	if err != nil {
		return nil, errors.Wrap(err, "invoke model")
	}

	var output anthropicTextGenerationOutput
	err = json.Unmarshal(resp.Body, &output)
	if err != nil {
		return nil, errors.Wrap(err, "decode response")
	}

	if len(output.Content) == 0 {
		return nil, errors.New("no results")
	} else if stopReason := output.StopReason; stopReason != AnthropicCompletionReasonEndTurn &&
		stopReason != AnthropicCompletionReasonStopSequence &&
		stopReason != AnthropicCompletionReasonToolUse {
		return nil, errors.New("completed due to " + stopReason + ". Maybe try increasing max tokens")
	}

	choice := &llms.ContentChoice{
		StopReason: output.StopReason,
		GenerationInfo: map[string]any{
			"InputTokens":  output.Usage.InputTokens,
			"OutputTokens": output.Usage.OutputTokens,
			"TotalTokens":  output.Usage.InputTokens + output.Usage.OutputTokens,
		},
	}
	for _, c := range output.Content {
		switch c.Type {
		case AnthropicMessageTypeText:
			if choice.Content != "" {
				choice.Content += "\n"
			}
			choice.Content += c.Text
		case AnthropicMessageTypeToolUse:
			argumentsJSON, err := json.Marshal(c.Input)
			if err != nil {
				return nil, errors.Wrap(err, "failed to marshal tool arguments")
			}
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   c.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      c.Name,
					Arguments: string(argumentsJSON),
				},
			})
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{choice},
	}, nil
}

func toAnthropicTools(tools []llms.Tool) ([]anthropicTool, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]anthropicTool, len(tools))
	for i, tool := range tools {
		schema, err := llmutils.SchemaToMap(tool.Function.Parameters)
		if err != nil {
			return nil, errors.WithMessagef(err, "bedrock: invalid schema for tool %q", tool.Function.Name)
		}
		in := anthropicInputSchema{Type: "object"}
		if properties, ok := schema["properties"].(map[string]any); ok {
			in.Properties = properties
		}
		if required := stringSlice(schema["required"]); len(required) > 0 {
			in.Required = required
		}
		out[i] = anthropicTool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: in,
		}
	}
	return out, nil
}

func stringSlice(val any) []string {
	switch typ := val.(type) {
	case []string:
		return typ
	case []any:
		out := make([]string, 0, len(typ))
		for _, v := range typ {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// processInputMessagesAnthropic groups consecutive chunks of the same role
// into messages, and extracts the system prompt.
func processInputMessagesAnthropic(messages []Message) ([]*anthropicTextGenerationInputMessage, string, error) {
	chunkedMessages := make([][]Message, 0, len(messages))
	currentChunk := make([]Message, 0, len(messages))
	var lastRole llms.Role
	for _, message := range messages {
		if message.Role != lastRole {
			if len(currentChunk) > 0 {
				chunkedMessages = append(chunkedMessages, currentChunk)
			}
			currentChunk = make([]Message, 0, len(messages))
		}
		currentChunk = append(currentChunk, message)
		lastRole = message.Role
	}
	if len(currentChunk) > 0 {
		chunkedMessages = append(chunkedMessages, currentChunk)
	}

	inputContents := make([]*anthropicTextGenerationInputMessage, 0, len(messages))
	var systemPrompt string
	for _, chunk := range chunkedMessages {
		role, err := getAnthropicRole(chunk[0].Role)
		if err != nil {
			return nil, "", err
		}
		if role == AnthropicSystem {
			if systemPrompt != "" {
				return nil, "", errors.New("multiple system prompts")
			}
			for _, message := range chunk {
				c := getAnthropicInputContent(message)
				if c.Type != AnthropicMessageTypeText {
					return nil, "", errors.New("system prompt must be text")
				}
				systemPrompt += c.Text
			}
			continue
		}
		content := make([]anthropicTextGenerationInputContent, 0, len(chunk))
		for _, message := range chunk {
			content = append(content, getAnthropicInputContent(message))
		}
		inputContents = append(inputContents, &anthropicTextGenerationInputMessage{
			Role:    role,
			Content: content,
		})
	}
	return inputContents, systemPrompt, nil
}

func getAnthropicRole(role llms.Role) (string, error) {
	switch role {
	case llms.RoleSystem:
		return AnthropicSystem, nil
	case llms.RoleAI:
		return AnthropicRoleAssistant, nil
	case llms.RoleHuman:
		return AnthropicRoleUser, nil
	case llms.RoleTool:
		// tool results go back as user content blocks
		return AnthropicRoleUser, nil
	default:
		return "", errors.Newf("role %q not supported", role)
	}
}

func getAnthropicInputContent(message Message) anthropicTextGenerationInputContent {
	var c anthropicTextGenerationInputContent
	switch message.Type {
	case AnthropicMessageTypeToolUse:
		var input any
		if message.ToolInput != "" {
			_ = json.Unmarshal([]byte(message.ToolInput), &input)
		}
		c = anthropicTextGenerationInputContent{
			Type:  message.Type,
			ID:    message.ToolCallID,
			Name:  message.ToolName,
			Input: input,
		}
	case AnthropicMessageTypeToolResult:
		c = anthropicTextGenerationInputContent{
			Type:      message.Type,
			ToolUseID: message.ToolCallID,
			Content:   message.Content,
		}
	default:
		c = anthropicTextGenerationInputContent{
			Type: AnthropicMessageTypeText,
			Text: message.Content,
		}
	}
	return c
}
