package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/agent"
	"github.com/effective-security/mcpagent/chatmodel"
	"github.com/effective-security/mcpagent/pkg/llmutils"
	"github.com/spf13/cobra"
)

func chatCmd(flags *cliFlags) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent; without --message starts an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.cfgFile)
			if err != nil {
				return err
			}
			llm, err := flags.model(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			manager, cleanup, err := newManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			var opts []agent.Option
			if cfg.SystemPrompt != "" {
				opts = append(opts, agent.WithSystemPrompt(cfg.SystemPrompt))
			}
			a := agent.New(llm, manager, opts...)

			ctx = chatmodel.WithChatContext(ctx,
				chatmodel.NewChatContext(chatmodel.DefaultTenantID, chatmodel.NewChatID(), nil))

			out := cmd.OutOrStdout()
			if message != "" {
				res, err := a.Chat(ctx, message)
				if err != nil && !errors.Is(err, agent.ErrToolLoopExceeded) {
					return err
				}
				fmt.Fprintln(out, llmutils.ToJSONIndent(res))
				return nil
			}

			fmt.Fprintf(out, "Connected. %d tools available. Type 'exit' to quit.\n", len(manager.ToolNames()))
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}

				res, err := a.Chat(ctx, line)
				if err != nil && !errors.Is(err, agent.ErrToolLoopExceeded) {
					fmt.Fprintln(os.Stderr, "error:", err)
					continue
				}
				for _, tc := range res.ToolCalls {
					status := "ok"
					if !tc.Success {
						status = "failed"
					}
					fmt.Fprintf(out, "[tool %s: %s]\n", tc.Name, status)
				}
				fmt.Fprintln(out, res.Response)
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "send a single message and print the response as JSON")
	return cmd
}
