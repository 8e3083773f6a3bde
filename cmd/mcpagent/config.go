package main

import (
	"github.com/effective-security/mcpagent/api"
	"github.com/effective-security/mcpagent/launcher"
	"github.com/effective-security/mcpagent/mcpclient"
	"github.com/effective-security/mcpagent/pkg/llmfactory"
	"github.com/effective-security/x/configloader"
)

// Config is the top-level agent configuration.
type Config struct {
	// LLM configures the model providers.
	LLM llmfactory.Config `json:"llm" yaml:"llm"`

	// Servers lists MCP servers to connect to. When empty, the built-in
	// calculator catalog is used in-process.
	Servers []*mcpclient.Config `json:"servers,omitempty" yaml:"servers,omitempty"`

	// SystemPrompt overrides the default agent system prompt.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`

	// API configures the HTTP server for the server command.
	API api.ServerConfig `json:"api,omitempty" yaml:"api,omitempty"`

	// Web configures the web UI process for the server command.
	Web launcher.WebConfig `json:"web,omitempty" yaml:"web,omitempty"`
}

func loadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, err
		}
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = "127.0.0.1:8000"
	}
	return cfg, nil
}
