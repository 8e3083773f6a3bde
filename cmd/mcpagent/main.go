// Command mcpagent is a conversational agent over MCP tool servers.
package main

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/calcserver"
	"github.com/effective-security/mcpagent/mcpclient"
	"github.com/effective-security/mcpagent/pkg/llmfactory"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/toolmanager"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "cli")

type cliFlags struct {
	cfgFile  string
	provider string
	debug    bool
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:           "mcpagent",
		Short:         "Conversational agent over MCP tool servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
			if flags.debug {
				xlog.SetGlobalLogLevel(xlog.DEBUG)
			} else {
				xlog.SetGlobalLogLevel(xlog.WARNING)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "cfg", "", "configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.provider, "provider", "", "LLM provider name from config")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "verbose logging")

	rootCmd.AddCommand(
		chatCmd(flags),
		toolsCmd(flags),
		serverCmd(flags),
	)

	if err := rootCmd.Execute(); err != nil {
		logger.KV(xlog.ERROR, "err", err.Error())
		return 1
	}
	return 0
}

func (f *cliFlags) model(cfg *Config) (llms.Model, error) {
	factory := llmfactory.New(&cfg.LLM)
	if f.provider != "" {
		return factory.ModelByName(f.provider)
	}
	return factory.DefaultModel()
}

// newManager connects to the configured MCP servers and discovers their
// catalogs. Without configured servers the built-in calculator catalog runs
// in-process.
func newManager(ctx context.Context, cfg *Config) (*toolmanager.Manager, func(), error) {
	var providers []toolmanager.Provider
	var closers []func() error

	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.KV(xlog.WARNING, "reason", "close_server", "err", err.Error())
			}
		}
	}

	if len(cfg.Servers) == 0 {
		reg, err := calcserver.NewRegistry(calcserver.Config{})
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, reg)
	}
	for _, sc := range cfg.Servers {
		c, err := mcpclient.Connect(ctx, *sc)
		if err != nil {
			cleanup()
			return nil, nil, errors.WithMessagef(err, "failed to connect to server %q", sc.Name)
		}
		providers = append(providers, c)
		closers = append(closers, c.Close)
	}

	m := toolmanager.New(providers...)
	if err := m.Discover(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return m, cleanup, nil
}
