package main

import (
	"github.com/effective-security/mcpagent/api"
	"github.com/effective-security/mcpagent/launcher"
	"github.com/effective-security/mcpagent/store"
	"github.com/spf13/cobra"
)

func serverCmd(flags *cliFlags) *cobra.Command {
	var (
		mode string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API and/or the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.cfgFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.API.Addr = addr
			}

			ctx := cmd.Context()

			var apiServer *api.Server
			runMode := launcher.Mode(mode)
			if runMode == launcher.ModeAPI || runMode == launcher.ModeBoth {
				llm, err := flags.model(cfg)
				if err != nil {
					return err
				}
				manager, cleanup, err := newManager(ctx, cfg)
				if err != nil {
					return err
				}
				defer cleanup()

				opts := []api.Option{
					api.WithStore(store.NewMemoryStore()),
				}
				if cfg.SystemPrompt != "" {
					opts = append(opts, api.WithSystemPrompt(cfg.SystemPrompt))
				}
				handler := api.NewHandler(llm, manager, opts...)
				apiServer = api.NewServer(cfg.API, handler.Routes())
			}

			l, err := launcher.New(launcher.Config{
				Mode: runMode,
				Web:  cfg.Web,
			}, apiServer)
			if err != nil {
				return err
			}
			return l.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(launcher.ModeAPI), "components to run: api|web|both")
	cmd.Flags().StringVar(&addr, "addr", "", "API listen address override")
	return cmd
}
