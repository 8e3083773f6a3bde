package llmfactory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/mcpagent/pkg/llmfactory"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
default_provider: claude
providers:
  - name: openai
    provider: OPENAI
    token: ${TEST_OPENAI_TOKEN}
    default_model: gpt-5-mini
  - name: claude
    provider: ANTHROPIC
    token: sk-ant-test
    default_model: claude-sonnet-4-20250514
`

func writeConfig(t *testing.T) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "llm.yaml")
	require.NoError(t, os.WriteFile(file, []byte(testConfig), 0o644))
	return file
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	cfg, err := llmfactory.LoadConfig(writeConfig(t))
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "claude", cfg.DefaultProvider)
	assert.Equal(t, "sk-test", cfg.Providers[0].Token)

	empty, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, empty.Providers)
}

func TestFactory(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	f, err := llmfactory.Load(writeConfig(t))
	require.NoError(t, err)

	def, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, def.GetProviderType())
	assert.Equal(t, "claude-sonnet-4-20250514", def.GetName())

	m, err := f.ModelByName("openai")
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, m.GetProviderType())

	// cached instance
	m2, err := f.ModelByName("openai")
	require.NoError(t, err)
	assert.Same(t, m, m2)

	byType, err := f.ModelByProvider(llms.ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, byType.GetProviderType())

	_, err = f.ModelByName("unknown")
	assert.EqualError(t, err, "provider not found for name: unknown")

	_, err = f.ModelByProvider(llms.ProviderBedrock)
	assert.EqualError(t, err, "provider not found for type: BEDROCK")
}

func TestNewLLM_Unsupported(t *testing.T) {
	_, err := llmfactory.NewLLM(&llmfactory.ProviderConfig{
		Name:     "bad",
		Provider: "OLLAMA",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider type")
}
