package llmutils_test

import (
	"strings"
	"testing"

	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llmutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	tcases := []struct {
		in  string
		exp string
	}{
		{`{"a":1}`, `{"a":1}`},
		{`Sure, here you go: {"a":1}`, `{"a":1}`},
		{`{"a":1} Let me know if you need more.`, `{"a":1}`},
		{`Here: [1,2,3] done`, `[1,2,3]`},
		{`no json here`, `no json here`},
	}
	for _, tc := range tcases {
		assert.Equal(t, tc.exp, string(llmutils.CleanJSON([]byte(tc.in))), tc.in)
	}
}

func TestTrimBackticks(t *testing.T) {
	assert.Equal(t, `{"a":1}`, llmutils.TrimBackticks("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, llmutils.TrimBackticks("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, llmutils.TrimBackticks(`{"a":1}`))
}

func TestBackticksJSON(t *testing.T) {
	out := llmutils.BackticksJSON(`{"a":1}`)
	assert.True(t, strings.HasPrefix(out, "```json\n"))
	assert.True(t, strings.HasSuffix(out, "\n```"))
}

func TestToYAML(t *testing.T) {
	out := llmutils.ToYAML(map[string]string{"name": "test"})
	assert.Equal(t, "name: test\n", out)
}

func TestSchemaToMap(t *testing.T) {
	m, err := llmutils.SchemaToMap(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	src := map[string]any{"type": "object"}
	m, err = llmutils.SchemaToMap(src)
	require.NoError(t, err)
	assert.Equal(t, src, m)

	m, err = llmutils.SchemaToMap(struct {
		Type string `json:"type"`
	}{Type: "object"})
	require.NoError(t, err)
	assert.Equal(t, "object", m["type"])

	_, err = llmutils.SchemaToMap("not a schema")
	require.Error(t, err)
}

func TestPrintMessages(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
		llms.MessageFromTextParts(llms.RoleAI, "hi there"),
	}
	var buf strings.Builder
	llmutils.PrintMessages(&buf, msgs)
	assert.Contains(t, buf.String(), "human:\nhello")
	assert.Contains(t, buf.String(), "ai:\nhi there")

	assert.Equal(t, uint64(len("hello")+len("hi there")), llmutils.CountMessagesContentSize(msgs))
}

func TestCountTokens(t *testing.T) {
	in, out, total := llmutils.CountTokens(nil)
	assert.Zero(t, in+out+total)

	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{GenerationInfo: map[string]any{
				"InputTokens":  10,
				"OutputTokens": int64(5),
				"TotalTokens":  float64(15),
			}},
		},
	}
	in, out, total = llmutils.CountTokens(resp)
	assert.Equal(t, int64(10), in)
	assert.Equal(t, int64(5), out)
	assert.Equal(t, int64(15), total)

	// OpenAI-style keys; total falls back to in+out
	resp = &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{GenerationInfo: map[string]any{
				"PromptTokens":     7,
				"CompletionTokens": 3,
			}},
		},
	}
	in, out, total = llmutils.CountTokens(resp)
	assert.Equal(t, int64(7), in)
	assert.Equal(t, int64(3), out)
	assert.Equal(t, int64(10), total)
}
