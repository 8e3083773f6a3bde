// Command calcserver runs the example calculator MCP server on stdio.
package main

import (
	"os"

	"github.com/effective-security/mcpagent/calcserver"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "cli")

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var outputDir string

	rootCmd := &cobra.Command{
		Use:           "calcserver",
		Short:         "Example calculator MCP server on stdio",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
			xlog.SetGlobalLogLevel(xlog.WARNING)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := calcserver.NewRegistry(calcserver.Config{
				OutputDir: outputDir,
			})
			if err != nil {
				return err
			}
			return calcserver.ServeStdio(reg)
		},
	}
	rootCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for the write_file tool (default: working directory)")

	if err := rootCmd.Execute(); err != nil {
		logger.KV(xlog.ERROR, "err", err.Error())
		return 1
	}
	return 0
}
