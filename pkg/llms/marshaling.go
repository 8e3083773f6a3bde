package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// contentPartJSON is the wire form of a ContentPart. The Type field
// discriminates which of the optional payloads is populated.
type contentPartJSON struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ToolCall     *ToolCall         `json:"tool_call,omitempty"`
	ToolResponse *ToolCallResponse `json:"tool_response,omitempty"`
}

type messageJSON struct {
	Role  Role              `json:"role"`
	Parts []contentPartJSON `json:"parts"`
}

// MarshalJSON implements json.Marshaler for Message.
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		Role:  m.Role,
		Parts: make([]contentPartJSON, 0, len(m.Parts)),
	}
	for _, part := range m.Parts {
		switch p := part.(type) {
		case TextContent:
			out.Parts = append(out.Parts, contentPartJSON{Type: "text", Text: p.Text})
		case ToolCall:
			tc := p
			out.Parts = append(out.Parts, contentPartJSON{Type: "tool_call", ToolCall: &tc})
		case ToolCallResponse:
			tr := p
			out.Parts = append(out.Parts, contentPartJSON{Type: "tool_response", ToolResponse: &tr})
		default:
			return nil, errors.Newf("unsupported content part type: %T", part)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler for Message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	m.Role = in.Role
	m.Parts = make([]ContentPart, 0, len(in.Parts))
	for _, part := range in.Parts {
		switch part.Type {
		case "text":
			m.Parts = append(m.Parts, TextContent{Text: part.Text})
		case "tool_call":
			if part.ToolCall == nil {
				return errors.New("tool_call part without payload")
			}
			m.Parts = append(m.Parts, *part.ToolCall)
		case "tool_response":
			if part.ToolResponse == nil {
				return errors.New("tool_response part without payload")
			}
			m.Parts = append(m.Parts, *part.ToolResponse)
		default:
			return errors.Newf("unsupported content part type: %q", part.Type)
		}
	}
	return nil
}
