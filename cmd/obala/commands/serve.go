// ABOUTME: Serve command runs the browser chat server
// ABOUTME: One WebSocket connection is one conversation; audio is served per turn
package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harper/obala/internal/logging"
	"github.com/harper/obala/internal/server"
)

var serveAddr string

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the browser chat server",
		Long: `Start the browser chat server.

Browsers connect to /ws and exchange JSON envelopes. Each connection
gets its own conversation, archived when the connection closes if
archiving is enabled. Reply audio is served from /audio/{session}/{turn}.`,
		Example: `  obala serve
  obala serve --addr :9000`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: SERVER_ADDR or :8080)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.ServerAddr
	}

	srv := server.New(a.manager, server.Config{MaxMessageSize: a.cfg.ServerMaxMessageSize}, logging.Component(a.logger, "server"))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
