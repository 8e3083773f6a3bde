package prompts_test

import (
	"testing"

	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	p, err := prompts.NewPromptTemplate("greeting",
		"Hello {{.name}}, welcome to {{.place}}!", "name", "place")
	require.NoError(t, err)

	out, err := p.Format(map[string]any{"name": "Ada", "place": "Go"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada, welcome to Go!", out)
}

func TestFormat_MissingVariable(t *testing.T) {
	p := prompts.MustNewPromptTemplate("greeting", "Hello {{.name}}!", "name")

	_, err := p.Format(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing prompt variable "name" in template "greeting"`)
}

func TestFormat_SprigFuncs(t *testing.T) {
	p := prompts.MustNewPromptTemplate("shout", "{{ .text | upper | trim }}", "text")

	out, err := p.Format(map[string]any{"text": "  be loud  "})
	require.NoError(t, err)
	assert.Equal(t, "BE LOUD", out)
}

func TestNewPromptTemplate_ParseError(t *testing.T) {
	_, err := prompts.NewPromptTemplate("broken", "{{ .unclosed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to parse prompt template "broken"`)
}

func TestFormatPrompt(t *testing.T) {
	p := prompts.MustNewPromptTemplate("question", "Explain {{.topic}}.", "topic")

	pv, err := p.FormatPrompt(map[string]any{"topic": "channels"})
	require.NoError(t, err)

	msgs := pv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, llms.RoleHuman, msgs[0].Role)

	text, ok := msgs[0].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Explain channels.", text.Text)

	assert.Contains(t, pv.String(), "Explain channels.")
}
