package chatmodel_test

import (
	"testing"

	"github.com/effective-security/mcpagent/chatmodel"
	"github.com/stretchr/testify/assert"
)

type contentOnly struct {
	content string
}

func (c contentOnly) GetContent() string { return c.content }

func TestStringify(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "plain", chatmodel.Stringify(contentOnly{content: "plain"}))
	assert.Equal(t, `{"a":1}`, chatmodel.Stringify(map[string]int{"a": 1}))
	assert.Equal(t, `["x","y"]`, string(chatmodel.ToBytes([]string{"x", "y"})))
	assert.Equal(t, "raw", string(chatmodel.ToBytes(contentOnly{content: "raw"})))
}
