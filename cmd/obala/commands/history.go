// ABOUTME: History commands browse the charm transcript archive
// ABOUTME: Lists archived conversations and shows or deletes one by ID
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/obala/internal/charm"
	"github.com/harper/obala/internal/models"
)

var historyLimit int

// NewHistoryCmd creates the history command group
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived conversations",
		Long: `Browse archived conversations.

Conversations are archived to Charm KV when a session is reset or
closed and ARCHIVE_ENABLED is set. Archives sync across devices linked
to the same Charm account.

Examples:
  obala history
  obala history --limit 5 --format json
  obala history show 20260301T120000.000000000_3f2a...
  obala history sync`,
		RunE: runHistoryList,
	}

	cmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum conversations to list")

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	cmd.AddCommand(newHistorySyncCmd())

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one archived conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := connectArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			t, err := archive.GetTranscript(args[0])
			if err != nil {
				return err
			}
			return showTranscript(cmd.OutOrStdout(), t)
		},
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one archived conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := connectArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			if err := archive.DeleteTranscript(args[0]); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			}
			return nil
		},
	}
}

func newHistorySyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := connectArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Syncing...")
			}
			if err := archive.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			}
			return nil
		},
	}
}

// connectArchive opens the archive regardless of ARCHIVE_ENABLED
func connectArchive() (*charm.Client, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	archive, err := openArchive(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Charm: %w", err)
	}
	return archive, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(historyLimit, "limit"); err != nil {
		return err
	}

	archive, err := connectArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	ids, err := archive.ListTranscripts()
	if err != nil {
		return err
	}
	if len(ids) > historyLimit {
		ids = ids[:historyLimit]
	}

	transcripts := make([]*models.Transcript, 0, len(ids))
	for _, id := range ids {
		t, err := archive.GetTranscript(id)
		if err != nil {
			return err
		}
		transcripts = append(transcripts, t)
	}

	return listTranscripts(cmd.OutOrStdout(), transcripts)
}

// historyEntry is one row of the listing
type historyEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Turns     int       `json:"turns"`
	UserTurns int       `json:"user_turns"`
	Preview   string    `json:"preview"`
	EndedAt   time.Time `json:"ended_at"`
}

func listTranscripts(out io.Writer, transcripts []*models.Transcript) error {
	if len(transcripts) == 0 {
		if !quiet {
			fmt.Fprintf(out, "No archived conversations\n")
		}
		return nil
	}

	if wantJSON() {
		entries := make([]historyEntry, 0, len(transcripts))
		for _, t := range transcripts {
			entries = append(entries, historyEntry{
				ID:        charm.ArchiveID(t),
				SessionID: t.SessionID,
				Turns:     len(t.Turns),
				UserTurns: t.UserTurns(),
				Preview:   t.Preview(60),
				EndedAt:   t.EndedAt,
			})
		}
		jsonData, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", jsonData)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ENDED\tMESSAGES\tFIRST MESSAGE\tID\n")
	fmt.Fprintf(w, "-----\t--------\t-------------\t--\n")
	for _, t := range transcripts {
		preview := t.Preview(40)
		if preview == "" {
			preview = "(none)"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			formatTime(t.EndedAt),
			t.UserTurns(),
			truncate(preview, 40),
			charm.ArchiveID(t))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(out, "\nTotal: %d conversation(s)\n", len(transcripts))
	}
	return nil
}

func showTranscript(out io.Writer, t *models.Transcript) error {
	if wantJSON() {
		jsonData, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", jsonData)
		return nil
	}

	fmt.Fprintf(out, "Session %s\n", t.SessionID)
	fmt.Fprintf(out, "%s - %s\n\n", t.StartedAt.Local().Format("2006-01-02 15:04"), t.EndedAt.Local().Format("15:04"))
	printHistory(out, t.Turns)
	return nil
}
