package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/weft/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC. It exposes
the search, outline, render and expand tools, and the weft://documents,
weft://documents/{id} and weft://nodes/{short_id} resources.

Use --port to start an HTTP server instead. In HTTP mode Prometheus
metrics are served on /metrics.

Examples:
  # Stdio mode (default)
  weft mcp serve

  # HTTP mode
  weft mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Search:   searchService,
		Render:   renderService,
		Document: documentService,
	}

	var opts []mcp.Option
	if metricsRegistry != nil {
		opts = append(opts, mcp.WithMetricsHandler(metricsRegistry.Handler()))
	}

	server, err := mcp.NewServer(ports, opts...)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
