package calcserver_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/effective-security/mcpagent/calcserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatorTools(t *testing.T) {
	reg, err := calcserver.NewRegistry(calcserver.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	tcases := []struct {
		tool string
		args map[string]any
		exp  string
	}{
		{"add", map[string]any{"a": 2.0, "b": 3.0}, `{"result":5}`},
		{"multiply", map[string]any{"a": 4.0, "b": 5.0}, `{"result":20}`},
		{"divide", map[string]any{"a": 10.0, "b": 4.0}, `{"result":2.5}`},
		{"power", map[string]any{"base": 2.0, "exponent": 10.0}, `{"result":1024}`},
	}
	for _, tc := range tcases {
		res, err := reg.CallTool(ctx, tc.tool, tc.args)
		require.NoError(t, err, tc.tool)
		require.False(t, res.IsError, tc.tool)
		assert.Equal(t, tc.exp, res.Content, tc.tool)
	}
}

func TestDivideByZero(t *testing.T) {
	reg, err := calcserver.NewRegistry(calcserver.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)

	res, err := reg.CallTool(context.Background(), "divide", map[string]any{"a": 1.0, "b": 0.0})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "cannot divide by zero")
}

func TestUtilityTools(t *testing.T) {
	reg, err := calcserver.NewRegistry(calcserver.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	res, err := reg.CallTool(ctx, "echo", map[string]any{"message": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Echo: hello", res.Content)

	res, err = reg.CallTool(ctx, "get_current_time", map[string]any{"timezone": "UTC"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	ts, err := time.Parse(time.RFC3339, res.Content)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)

	res, err = reg.CallTool(ctx, "get_current_time", map[string]any{"timezone": "Not/AZone"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, `unknown timezone "Not/AZone"`)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	reg, err := calcserver.NewRegistry(calcserver.Config{OutputDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	res, err := reg.CallTool(ctx, "write_file", map[string]any{
		"file_name": "notes/hello.txt",
		"content":   "hi",
	})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "File written to ")

	bs, err := os.ReadFile(filepath.Join(dir, "notes", "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(bs))

	// path traversal and absolute paths are rejected
	for _, name := range []string{"../escape.txt", "/etc/passwd"} {
		res, err = reg.CallTool(ctx, "write_file", map[string]any{
			"file_name": name,
			"content":   "nope",
		})
		require.NoError(t, err)
		assert.True(t, res.IsError, name)
		assert.Contains(t, res.Content, "invalid file name", name)
	}
}

func TestResources(t *testing.T) {
	reg, err := calcserver.NewRegistry(calcserver.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	defs, err := reg.ListResources(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 3)

	content, err := reg.ReadResource(ctx, "config://server")
	require.NoError(t, err)
	require.Len(t, content, 1)

	var config map[string]any
	require.NoError(t, json.Unmarshal([]byte(content[0].Text), &config))
	assert.Equal(t, calcserver.ServerName, config["server_name"])
	assert.Equal(t, calcserver.ServerVersion, config["version"])

	content, err = reg.ReadResource(ctx, "status://health")
	require.NoError(t, err)
	assert.Contains(t, content[0].Text, `"healthy"`)

	content, err = reg.ReadResource(ctx, "info://capabilities")
	require.NoError(t, err)
	assert.Contains(t, content[0].Text, `"write_file"`)
}

func TestPrompts(t *testing.T) {
	reg, err := calcserver.NewRegistry(calcserver.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	defs, err := reg.ListPrompts(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 2)

	msgs, err := reg.GetPrompt(ctx, "code_review", map[string]string{
		"code":     `fmt.Println("hi")`,
		"language": "go",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "review the following go code")
	assert.Contains(t, msgs[0].Content, `fmt.Println("hi")`)

	// language defaults to python
	msgs, err = reg.GetPrompt(ctx, "explain_code", map[string]string{"code": "print(1)"})
	require.NoError(t, err)
	assert.Contains(t, msgs[0].Content, "python code")

	// the code argument is required
	_, err = reg.GetPrompt(ctx, "code_review", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing prompt variable "code"`)
}
