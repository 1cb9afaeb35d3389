// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Enables LLM agents to converse with OBALA via stdio
package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/obala/internal/logging"
	"github.com/harper/obala/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs OBALA as an MCP (Model Context Protocol) server, letting LLM
agents hold a Twi conversation via stdio. Logs go to stderr.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  obala mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "obala": {
  #       "command": "obala",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewMCPServer("OBALA", versionInfo.Version)
	handlers := mcp.RegisterTools(server, a.manager, logging.Component(a.logger, "mcp"))

	a.logger.Info().Msg("OBALA MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutdown signal received, gracefully shutting down")
		handlers.Shutdown()
		a.logger.Info().Msg("shutdown complete")

	case err := <-serverErr:
		handlers.Shutdown()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
