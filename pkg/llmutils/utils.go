package llmutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"gopkg.in/yaml.v3"
)

// CleanJSON returns JSON by trimming prefixes and postfixes,
// as an LLM can reply like `Here you go: {json}`.
func CleanJSON(bs []byte) []byte {
	return trimPostfixAfterJSON(trimPrefixBeforeJSON(bs))
}

// Removes any prefixes before the JSON (like "Sure, here you go:")
func trimPrefixBeforeJSON(bs []byte) []byte {
	startObject := bytes.IndexByte(bs, '{')
	startArray := bytes.IndexByte(bs, '[')

	var start int
	if startObject == -1 && startArray == -1 {
		return bs
	} else if startObject == -1 {
		start = startArray
	} else if startArray == -1 {
		start = startObject
	} else {
		start = min(startObject, startArray)
	}
	return bs[start:]
}

// Removes any postfixes after the JSON
func trimPostfixAfterJSON(bs []byte) []byte {
	endObject := bytes.LastIndexByte(bs, '}')
	endArray := bytes.LastIndexByte(bs, ']')

	var end int
	if endObject == -1 && endArray == -1 {
		return bs
	} else if endObject == -1 {
		end = endArray
	} else if endArray == -1 {
		end = endObject
	} else {
		end = max(endObject, endArray)
	}
	return bs[:end+1]
}

// TrimBackticks removes a ```json ... ``` fence around the text, if present.
func TrimBackticks(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

// ToJSON marshals the value to a compact JSON string.
func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

// ToJSONIndent marshals the value to an indented JSON string.
func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

// ToYAML marshals the value to a YAML string.
func ToYAML(val any) string {
	ys, _ := yaml.Marshal(val)
	return string(ys)
}

// BackticksJSON wraps a JSON string in a ```json fence.
func BackticksJSON(js string) string {
	return fmt.Sprintf("```json\n%s\n```", js)
}

// SchemaToMap converts any JSON-schema carrier (invopop schema, raw JSON,
// or a map) into a generic map for providers that need map-shaped schemas.
func SchemaToMap(schema any) (map[string]any, error) {
	switch s := schema.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return s, nil
	case json.RawMessage:
		var m map[string]any
		if err := json.Unmarshal(s, &m); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal schema")
		}
		return m, nil
	default:
		js, err := json.Marshal(schema)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal schema")
		}
		var m map[string]any
		if err := json.Unmarshal(js, &m); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal schema")
		}
		return m, nil
	}
}

// PrintMessages writes messages in a human readable form, for debugging.
func PrintMessages(w io.Writer, msgs []llms.Message) {
	for _, msg := range msgs {
		fmt.Fprintf(w, "%s:\n%s\n", msg.Role, msg.GetContent())
	}
}

// CountMessagesContentSize returns the total content size of the messages in bytes.
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var total uint64
	for _, msg := range msgs {
		total += uint64(len(msg.GetContent()))
	}
	return total
}

// CountResponseContentSize returns the total content size of the response in bytes.
func CountResponseContentSize(resp *llms.ContentResponse) uint64 {
	if resp == nil {
		return 0
	}
	var total uint64
	for _, choice := range resp.Choices {
		total += uint64(len(choice.Content))
	}
	return total
}

// CountTokens extracts token usage from the response GenerationInfo,
// as reported by the provider. Returns zeros when the provider did not
// report usage.
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	if resp == nil {
		return 0, 0, 0
	}
	for _, choice := range resp.Choices {
		in += infoNumber(choice.GenerationInfo, "InputTokens", "PromptTokens")
		out += infoNumber(choice.GenerationInfo, "OutputTokens", "CompletionTokens")
		total += infoNumber(choice.GenerationInfo, "TotalTokens")
	}
	if total == 0 {
		total = in + out
	}
	return in, out, total
}

func infoNumber(info map[string]any, keys ...string) int64 {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
