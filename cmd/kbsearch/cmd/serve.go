package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fixmate/kbsearch/internal/config"
	"github.com/fixmate/kbsearch/internal/logging"
	"github.com/fixmate/kbsearch/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server exposing the lookup_knowledge tool.

The stdio transport speaks JSON-RPC over stdin/stdout, so nothing else
may write to stdout; all logging goes to file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, transport)
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "Transport: stdio")

	return cmd
}

func runServe(cmd *cobra.Command, transport string) error {
	// Stdout carries JSON-RPC exclusively; route logs to file.
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if logger, cleanup, err := logging.Setup(logCfg); err == nil {
		defer cleanup()
		slog.SetDefault(logger)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := mcp.NewServer(p, slog.Default())
	if err != nil {
		return err
	}
	return server.Serve(ctx, transport)
}
