// Package openaiclient is a thin HTTP client for the OpenAI and Azure OpenAI
// chat APIs.
package openaiclient

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "openai")

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultChatModel = "gpt-5-mini"
	DefaultMaxTokens = 2 * 16384
)

// ErrEmptyResponse is returned when the OpenAI API returns an empty response.
var ErrEmptyResponse = errors.New("empty response")

type ProviderType string

const (
	ProviderOpenAI     ProviderType = "OPENAI"
	ProviderAzure      ProviderType = "AZURE"
	ProviderAzureAD    ProviderType = "AZURE_AD"
	ProviderPerplexity ProviderType = "PERPLEXITY"
)

// ToolType is the type of a tool.
type ToolType string

const (
	ToolTypeFunction ToolType = "function"
)

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the OpenAI API.
type Client struct {
	Model    string
	Provider ProviderType

	token        string
	baseURL      string
	organization string
	httpClient   Doer

	// required when provider is ProviderAzure or ProviderAzureAD
	apiVersion           string
	supportsResponsesAPI bool
}

// New returns a new OpenAI client.
func New(provider ProviderType, model, token, baseURL, organization, apiVersion string, httpClient Doer) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		Model:                model,
		Provider:             provider,
		token:                token,
		baseURL:              strings.TrimSuffix(baseURL, "/"),
		organization:         organization,
		apiVersion:           apiVersion,
		httpClient:           httpClient,
		supportsResponsesAPI: isResponsesAPI(provider, apiVersion),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c, nil
}

func isResponsesAPI(provider ProviderType, apiVersion string) bool {
	if IsAzure(provider) {
		// Azure API versions are dates like YYYY-MM-DD, optionally with a "-preview" suffix.
		if idx := strings.Index(apiVersion, "-preview"); idx != -1 {
			apiVersion = apiVersion[:idx]
		}
		apiVersion = strings.TrimSpace(apiVersion)
		versionDate, err := time.Parse("2006-01-02", apiVersion)
		if err != nil {
			return false
		}
		thresholdDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		return !versionDate.Before(thresholdDate)
	}
	return provider == ProviderOpenAI
}

// SupportsResponsesAPI reports whether the configured provider and API version
// can serve the /responses endpoint.
func (c *Client) SupportsResponsesAPI() bool {
	return c.supportsResponsesAPI
}

// IsAzure reports whether the provider is an Azure variant.
func IsAzure(provider ProviderType) bool {
	return provider == ProviderAzure || provider == ProviderAzureAD
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.Provider == ProviderOpenAI || c.Provider == ProviderAzure || c.Provider == ProviderAzureAD {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		req.Header.Set("api-key", c.token)
	}
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}
}

func (c *Client) buildURL(suffix string, model string) string {
	if IsAzure(c.Provider) {
		return c.buildAzureURL(suffix, model)
	}
	return fmt.Sprintf("%s%s", c.baseURL, suffix)
}

func (c *Client) buildAzureURL(suffix string, model string) string {
	baseURL := strings.TrimRight(c.baseURL, "/")

	if suffix == "/responses" {
		// the /responses API is not nested under /deployments/{deployment};
		// the model (deployment name) goes in the request body.
		return fmt.Sprintf("%s/openai/responses?api-version=%s",
			baseURL, c.apiVersion,
		)
	}

	// /openai/deployments/{model}/chat/completions?api-version={api_version}
	return fmt.Sprintf("%s/openai/deployments/%s%s?api-version=%s",
		baseURL, model, suffix, c.apiVersion,
	)
}

type errorMessage struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
