// ABOUTME: Memory Compactor bounds the conversation by folding older turns into a summary
// ABOUTME: Runs after each user turn and before generation; falls back to truncation when summarization fails
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/harper/obala/internal/conversation"
	"github.com/harper/obala/internal/llm"
	"github.com/harper/obala/internal/models"
	"github.com/harper/obala/internal/persona"
)

const (
	// DefaultMaxTurns is the length above which compaction fires
	DefaultMaxTurns = 8
	// DefaultRecentTurns is how many trailing turns survive compaction verbatim
	DefaultRecentTurns = 6
	// summaryAttempts is the initial call plus one retry
	summaryAttempts = 2
)

// ErrEmptySummary is returned when the summarizer produced no text
var ErrEmptySummary = errors.New("summarizer returned no text")

// MemoryConfig bounds the retained conversation
type MemoryConfig struct {
	MaxTurns    int
	RecentTurns int
}

// DefaultMemoryConfig returns the stock bounds
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{MaxTurns: DefaultMaxTurns, RecentTurns: DefaultRecentTurns}
}

// Validate checks that a compaction always shrinks the conversation
func (m MemoryConfig) Validate() error {
	if m.RecentTurns < 1 {
		return fmt.Errorf("recent turns must be >= 1, got %d", m.RecentTurns)
	}
	if m.RecentTurns+1 > m.MaxTurns {
		return fmt.Errorf("recent turns + 1 must be <= max turns, got %d and %d", m.RecentTurns, m.MaxTurns)
	}
	return nil
}

// CompactionResult reports what a MaybeCompact call did
type CompactionResult struct {
	Compacted  bool // the store was rewritten
	Summarized bool // a summary turn heads the new conversation
	Truncated  bool // summarization failed and older turns were dropped
	Dropped    int  // turns removed from the conversation
	Attempts   int  // summarizer calls made
}

// Compactor keeps the conversation within MaxTurns
type Compactor struct {
	gen     llm.Generator
	persona *persona.Persona
	memory  MemoryConfig
	params  llm.Params
	logger  zerolog.Logger
}

// NewCompactor creates a compactor. params are the summarization sampling settings.
func NewCompactor(gen llm.Generator, p *persona.Persona, memory MemoryConfig, params llm.Params, logger zerolog.Logger) (*Compactor, error) {
	if err := memory.Validate(); err != nil {
		return nil, err
	}
	return &Compactor{
		gen:     gen,
		persona: p,
		memory:  memory,
		params:  params,
		logger:  logger,
	}, nil
}

// MaybeCompact summarizes everything but the last RecentTurns turns when the
// conversation is longer than MaxTurns. It never fails: a summarizer that errors
// twice degrades to plain truncation.
func (c *Compactor) MaybeCompact(ctx context.Context, store *conversation.Store) CompactionResult {
	turns := store.All()
	if len(turns) <= c.memory.MaxTurns {
		return CompactionResult{}
	}

	split := len(turns) - c.memory.RecentTurns
	older, kept := turns[:split], turns[split:]

	digest, attempts, err := c.summarize(ctx, older)
	if err == nil {
		replacement := append([]models.Turn{models.NewSummaryTurn(digest)}, kept...)
		if err := store.Replace(replacement); err != nil {
			// Unreachable: the replacement always starts with the summary turn.
			c.logger.Error().Err(err).Msg("failed to install summary")
			return CompactionResult{Attempts: attempts}
		}
		c.logger.Info().
			Int("before", len(turns)).
			Int("after", len(replacement)).
			Int("summarized_turns", len(older)).
			Msg("conversation compacted")
		return CompactionResult{
			Compacted:  true,
			Summarized: true,
			Dropped:    len(turns) - len(replacement),
			Attempts:   attempts,
		}
	}

	replacement := kept
	if kept[0].IsUser() {
		replacement = append([]models.Turn{turns[0]}, kept...)
	}
	if err := store.Replace(replacement); err != nil {
		c.logger.Error().Err(err).Msg("failed to truncate conversation")
		return CompactionResult{Attempts: attempts}
	}

	c.logger.Warn().
		Err(err).
		Int("attempts", attempts).
		Int("before", len(turns)).
		Int("after", len(replacement)).
		Msg("summarization failed, conversation truncated")

	return CompactionResult{
		Compacted: true,
		Truncated: true,
		Dropped:   len(turns) - len(replacement),
		Attempts:  attempts,
	}
}

// summarize calls the generator up to summaryAttempts times
func (c *Compactor) summarize(ctx context.Context, older []models.Turn) (string, int, error) {
	req := llm.Request{
		Messages: []llm.Message{{
			Role: llm.RoleUser,
			Text: renderTranscript(older, c.persona.Name),
		}},
		SystemInstruction: c.persona.SummaryInstruction,
		Params:            c.params,
	}

	var lastErr error
	for attempt := 1; attempt <= summaryAttempts; attempt++ {
		resp, err := c.gen.Generate(ctx, req)
		if err != nil {
			lastErr = models.NewError(models.KindSummarizationFailed, err)
			c.logger.Debug().Err(err).Int("attempt", attempt).Msg("summarization attempt failed")
			continue
		}
		if digest := resp.Text(); digest != "" {
			return digest, attempt, nil
		}
		lastErr = models.NewError(models.KindSummarizationFailed, ErrEmptySummary)
	}
	return "", summaryAttempts, lastErr
}

// renderTranscript flattens turns into the text the summarizer reads.
// Failed replies carry no content worth keeping.
func renderTranscript(turns []models.Turn, assistantName string) string {
	if assistantName == "" {
		assistantName = "Assistant"
	}
	var b strings.Builder
	for _, t := range turns {
		if t.Failed {
			continue
		}
		switch {
		case t.Summary:
			b.WriteString("Summary so far: ")
		case t.IsUser():
			b.WriteString("User: ")
		default:
			b.WriteString(assistantName + ": ")
		}
		b.WriteString(strings.TrimSpace(t.Content))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
