package main

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llmutils"
	"github.com/spf13/cobra"
)

func toolsCmd(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and execute tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.cfgFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			manager, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Fprintln(cmd.OutOrStdout(), llmutils.ToJSONIndent(manager.Describe()))
			return nil
		},
	}
	cmd.AddCommand(toolsExecCmd(flags))
	return cmd
}

func toolsExecCmd(flags *cliFlags) *cobra.Command {
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "exec <tool>",
		Short: "Execute a single tool directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.cfgFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			manager, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			toolArgs := map[string]any{}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return errors.WithMessage(err, "invalid --args JSON")
				}
			}

			rec, err := manager.Execute(ctx, args[0], toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), llmutils.ToJSONIndent(rec))
			return nil
		},
	}
	cmd.Flags().StringVar(&argsJSON, "args", "", "tool arguments as a JSON object")
	return cmd
}
