// ABOUTME: Chat command runs an interactive OBALA conversation in the terminal
// ABOUTME: Slash commands translate replies, submit recorded voice, show history and reset
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harper/obala/internal/models"
	"github.com/harper/obala/internal/session"
)

const chatHelp = `Commands:
  /translate [turn-id]  English translation of a reply (default: the latest)
  /voice <file>         Submit a recorded audio file as your message
  /history              Show the conversation as OBALA remembers it
  /reset                Start a new conversation
  /quit                 Leave`

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with OBALA in the terminal",
		Long: `Chat with OBALA in the terminal.

Every reply is spoken when the Twi speech service is reachable; the
path of the audio file is printed under the reply.

` + chatHelp,
		Example: `  obala chat
  obala chat --verbose`,
		RunE: runChat,
	}

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.manager.Create())
}

// chatLoop reads lines from in until EOF, /quit or cancellation
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, sess *session.Session) error {
	printWarnings(out, sess.StartupWarnings())
	printGreeting(out, sess)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			reply, err := sess.SubmitText(ctx, line)
			if err != nil {
				return err
			}
			printReply(out, reply)
			continue
		}

		command, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch command {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
		case "/reset":
			sess.Reset()
			printGreeting(out, sess)
		case "/history":
			printHistory(out, sess.Conversation())
		case "/translate":
			translate(ctx, out, sess, arg)
		case "/voice":
			if err := voice(ctx, out, sess, arg); err != nil {
				return err
			}
		default:
			fmt.Fprintf(out, "Unknown command %s\n%s\n", command, chatHelp)
		}
	}
}

func printGreeting(out io.Writer, sess *session.Session) {
	turns := sess.Conversation()
	if len(turns) > 0 {
		fmt.Fprintf(out, "OBALA: %s\n", turns[0].Content)
	}
}

func printReply(out io.Writer, reply session.Reply) {
	if reply.Transcript != "" {
		fmt.Fprintf(out, "You said: %s\n", reply.Transcript)
	}
	if reply.Assistant != nil {
		fmt.Fprintf(out, "OBALA: %s\n", reply.Assistant.Content)
	}
	if reply.AudioRef != "" {
		fmt.Fprintf(out, "  audio: %s\n", reply.AudioRef)
	}
	printWarnings(out, reply.Warnings)
}

func printHistory(out io.Writer, turns []models.Turn) {
	for _, turn := range turns {
		speaker := "You"
		switch {
		case turn.Summary:
			speaker = "Summary"
		case turn.IsAssistant():
			speaker = "OBALA"
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", turn.TurnID, speaker, turn.Content)
		if turn.Translation != "" {
			fmt.Fprintf(out, "  en: %s\n", turn.Translation)
		}
		if turn.HasAudio() {
			fmt.Fprintf(out, "  audio: %s\n", turn.AudioRef)
		}
	}
}

func translate(ctx context.Context, out io.Writer, sess *session.Session, turnID string) {
	if turnID == "" {
		turnID = latestReply(sess.Conversation())
	}
	if turnID == "" {
		fmt.Fprintln(out, "Nothing to translate yet")
		return
	}

	text, warning, err := sess.Translate(ctx, turnID)
	if err != nil {
		fmt.Fprintf(out, "Cannot translate %s: %v\n", turnID, err)
		return
	}
	if warning != nil {
		printWarnings(out, []models.Warning{*warning})
		return
	}
	fmt.Fprintf(out, "  en: %s\n", text)
}

func voice(ctx context.Context, out io.Writer, sess *session.Session, path string) error {
	if path == "" {
		fmt.Fprintln(out, "Usage: /voice <file>")
		return nil
	}
	audio, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(out, "Cannot read %s: %v\n", path, err)
		return nil
	}

	reply, err := sess.SubmitVoice(ctx, audio)
	if err != nil {
		return err
	}
	printReply(out, reply)
	return nil
}

// latestReply returns the ID of the newest translatable assistant turn
func latestReply(turns []models.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].IsReply() {
			return turns[i].TurnID
		}
	}
	return ""
}
