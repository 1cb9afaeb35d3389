// ABOUTME: Root command and global flags for the OBALA CLI
// ABOUTME: Wires chat, serve, mcp, history and version subcommands
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "obala",
		Short: "OBALA - a Twi-speaking chat assistant",
		Long: `
 ██████  ██████   █████  ██       █████
██    ██ ██   ██ ██   ██ ██      ██   ██
██    ██ ██████  ███████ ██      ███████
██    ██ ██   ██ ██   ██ ██      ██   ██
 ██████  ██████  ██   ██ ███████ ██   ██

OBALA chats in Asante Twi, speaks its replies aloud, and remembers
long conversations by folding older turns into a running summary.

Talk to it in the terminal, from a browser over WebSocket, or from
an LLM agent over MCP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "auto", "text", "json":
				return nil
			default:
				return fmt.Errorf("invalid --format %q (want auto, text or json)", outputFormat)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, text or json")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
