package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowspec"
	"github.com/aretw0/flowspec/internal/cli"
	"github.com/aretw0/flowspec/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server",
	Long: `Exposes meta-workflows, transition gates and config validation as Model
Context Protocol tools, over stdio or SSE.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		rt, logger, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		srv := mcp.NewServer(rt.Engine, strings.TrimSpace(flowspec.Version), mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			return srv.ServeStdio()
		case "sse":
			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()
			logger.Info("Starting MCP SSE server", "port", port)
			return srv.ServeSSE(ctx, port)
		default:
			return usageErrorf("unknown transport %q, expected stdio or sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().Int("port", 8080, "Port for the SSE transport")
}

