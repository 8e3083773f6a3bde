// Package llmfactory creates LLM models from configuration.
package llmfactory

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llms/anthropic"
	"github.com/effective-security/mcpagent/pkg/llms/bedrock"
	"github.com/effective-security/mcpagent/pkg/llms/openai"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "llmfactory")

// Factory provides configured LLM models.
type Factory interface {
	// DefaultModel returns the default provider's model.
	DefaultModel() (llms.Model, error)
	// ModelByProvider returns a model of the given provider type.
	ModelByProvider(typ llms.ProviderType) (llms.Model, error)
	// ModelByName returns the model of the named provider entry.
	ModelByName(name string) (llms.Model, error)
}

// Load returns a factory from a config file location.
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	byProvider map[llms.ProviderType]llms.Model
	byName     map[string]llms.Model
	lock       sync.Mutex
}

// New creates a new LLM factory.
func New(cfg *Config) Factory {
	return &factory{
		cfg:        cfg,
		byProvider: make(map[llms.ProviderType]llms.Model),
		byName:     make(map[string]llms.Model),
	}
}

// NewLLM creates a model from a single provider config.
func NewLLM(cfg *ProviderConfig) (llms.Model, error) {
	switch typ := llms.ProviderType(strings.ToUpper(values.StringsCoalesce(cfg.Provider, string(llms.ProviderOpenAI)))); typ {
	case llms.ProviderAnthropic:
		var opts []anthropic.Option
		if cfg.Token != "" {
			opts = append(opts, anthropic.WithToken(cfg.Token))
		}
		opts = append(opts, anthropic.WithModel(cfg.DefaultModel))
		return anthropic.New(opts...)

	case llms.ProviderBedrock:
		opts := []bedrock.Option{bedrock.WithModel(cfg.DefaultModel)}
		if cfg.Bedrock.Region != "" {
			opts = append(opts, bedrock.WithRegion(cfg.Bedrock.Region))
		}
		return bedrock.New(opts...)

	case llms.ProviderOpenAI, llms.ProviderAzure, llms.ProviderAzureAD, llms.ProviderPerplexity:
		opts := []openai.Option{
			openai.WithProvider(openai.ProviderType(typ)),
			openai.WithModel(cfg.DefaultModel),
		}
		if cfg.Token != "" {
			opts = append(opts, openai.WithToken(cfg.Token))
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		if cfg.OpenAI.APIVersion != "" {
			opts = append(opts, openai.WithAPIVersion(cfg.OpenAI.APIVersion))
		}
		if cfg.OpenAI.OrgID != "" {
			opts = append(opts, openai.WithOrganization(cfg.OpenAI.OrgID))
		}
		return openai.New(opts...)

	default:
		return nil, errors.Newf("unsupported provider type: %s", typ)
	}
}

// DefaultModel returns the model of the configured default provider, or of
// the first provider when no default is named.
func (f *factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 {
		return nil, errors.New("no providers configured")
	}
	name := values.StringsCoalesce(f.cfg.DefaultProvider, f.cfg.Providers[0].Name)
	return f.ModelByName(name)
}

func (f *factory) ModelByProvider(typ llms.ProviderType) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if model, ok := f.byProvider[typ]; ok {
		return model, nil
	}

	for _, cfg := range f.cfg.Providers {
		if strings.EqualFold(cfg.Provider, string(typ)) {
			model, err := f.create(cfg)
			if err != nil {
				return nil, err
			}
			f.byProvider[typ] = model
			return model, nil
		}
	}
	return nil, errors.Newf("provider not found for type: %s", typ)
}

func (f *factory) ModelByName(name string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if model, ok := f.byName[name]; ok {
		return model, nil
	}

	for _, cfg := range f.cfg.Providers {
		if cfg.Name == name {
			model, err := f.create(cfg)
			if err != nil {
				return nil, err
			}
			f.byName[name] = model
			return model, nil
		}
	}
	return nil, errors.Newf("provider not found for name: %s", name)
}

func (f *factory) create(cfg *ProviderConfig) (llms.Model, error) {
	model, err := NewLLM(cfg)
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG,
		"status", "created_llm",
		"provider", cfg.Provider,
		"model", cfg.DefaultModel,
		"name", cfg.Name)

	return model, nil
}
