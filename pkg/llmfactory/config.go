package llmfactory

import (
	"github.com/effective-security/x/configloader"
)

// Config describes the configured LLM providers.
type Config struct {
	// Providers lists the available providers. The first entry is the
	// default unless DefaultProvider is set.
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider is the name of the provider to use by default.
	DefaultProvider string `json:"default_provider,omitempty" yaml:"default_provider,omitempty"`
}

// ProviderConfig describes a single LLM provider.
type ProviderConfig struct {
	// Name is a unique name of the provider entry.
	Name string `json:"name" yaml:"name"`
	// Provider is the provider type:
	// OPENAI|AZURE|AZURE_AD|PERPLEXITY|ANTHROPIC|BEDROCK
	Provider string `json:"provider" yaml:"provider"`
	// Token is the API key. Supports ${ENV} expansion.
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`

	OpenAI  OpenAIConfig  `json:"open_ai,omitempty" yaml:"open_ai,omitempty"`
	Bedrock BedrockConfig `json:"bedrock,omitempty" yaml:"bedrock,omitempty"`
}

// OpenAIConfig specifies OpenAI and Azure OpenAI options.
type OpenAIConfig struct {
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	// OrgID specifies which organization's quota and billing should be used
	// when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
}

// BedrockConfig specifies AWS Bedrock options.
type BedrockConfig struct {
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

// LoadConfig loads the config from a YAML or JSON file, with environment
// variable expansion.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
