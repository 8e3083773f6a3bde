package openaiclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURL(t *testing.T) {
	c, err := New(ProviderOpenAI, "gpt-5-mini", "sk-test", "", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", c.buildURL("/chat/completions", "gpt-5-mini"))

	az, err := New(ProviderAzure, "my-deployment", "key", "https://example.openai.azure.com/", "", "2024-02-01", nil)
	require.NoError(t, err)
	assert.Equal(t,
		"https://example.openai.azure.com/openai/deployments/my-deployment/chat/completions?api-version=2024-02-01",
		az.buildURL("/chat/completions", "my-deployment"))
	assert.Equal(t,
		"https://example.openai.azure.com/openai/responses?api-version=2024-02-01",
		az.buildURL("/responses", "my-deployment"))
}

func TestIsResponsesAPI(t *testing.T) {
	assert.True(t, isResponsesAPI(ProviderOpenAI, ""))
	assert.False(t, isResponsesAPI(ProviderPerplexity, ""))
	assert.False(t, isResponsesAPI(ProviderAzure, "2024-02-01"))
	assert.True(t, isResponsesAPI(ProviderAzure, "2025-03-01"))
	assert.True(t, isResponsesAPI(ProviderAzureAD, "2025-04-01-preview"))
	assert.False(t, isResponsesAPI(ProviderAzure, "not-a-date"))
}
