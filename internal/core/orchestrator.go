// ABOUTME: Turn Orchestrator produces exactly one assistant turn per user turn
// ABOUTME: Sends the recent window to the generator and substitutes the sentinel on any failure
package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/harper/obala/internal/conversation"
	"github.com/harper/obala/internal/llm"
	"github.com/harper/obala/internal/models"
	"github.com/harper/obala/internal/persona"
)

// ErrEmptyReply is logged when the generator answered without usable text
var ErrEmptyReply = errors.New("generator returned no text")

// Orchestrator drives reply generation
type Orchestrator struct {
	gen         llm.Generator
	persona     *persona.Persona
	recentTurns int
	params      llm.Params
	logger      zerolog.Logger
}

// NewOrchestrator creates an orchestrator. params are the reply sampling settings.
func NewOrchestrator(gen llm.Generator, p *persona.Persona, recentTurns int, params llm.Params, logger zerolog.Logger) *Orchestrator {
	if recentTurns < 1 {
		recentTurns = DefaultRecentTurns
	}
	return &Orchestrator{
		gen:         gen,
		persona:     p,
		recentTurns: recentTurns,
		params:      params,
		logger:      logger,
	}
}

// Window selects the turns sent to the generator: the last recentTurns turns,
// preceded by the summary turn when compaction put one at the head.
func (o *Orchestrator) Window(turns []models.Turn) []models.Turn {
	if len(turns) <= o.recentTurns {
		return turns
	}
	window := turns[len(turns)-o.recentTurns:]
	if turns[0].Summary {
		window = append([]models.Turn{turns[0]}, window...)
	}
	return window
}

// GenerateReply makes one generation call and appends the assistant turn.
// On failure the appended turn carries the sentinel and a warning is returned.
func (o *Orchestrator) GenerateReply(ctx context.Context, store *conversation.Store) (models.Turn, *models.Warning) {
	window := o.Window(store.All())

	resp, err := o.gen.Generate(ctx, llm.Request{
		Messages:          toMessages(window),
		SystemInstruction: o.persona.SystemInstruction,
		Params:            o.params,
	})

	text := ""
	if err == nil {
		text = resp.Text()
		if text == "" {
			err = ErrEmptyReply
		}
	}

	if err != nil {
		err = models.NewError(models.KindGenerationFailed, err)
		o.logger.Error().Err(err).Int("window", len(window)).Msg("reply generation failed")

		reply := models.NewAssistantTurn(o.persona.Sentinel())
		reply.Failed = true
		store.Append(reply)
		warning := o.persona.Warning(models.KindGenerationFailed)
		return reply, &warning
	}

	reply := models.NewAssistantTurn(text)
	store.Append(reply)
	o.logger.Debug().Str("turn_id", reply.TurnID).Int("window", len(window)).Msg("reply generated")
	return reply, nil
}

func toMessages(turns []models.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.IsAssistant() {
			role = llm.RoleModel
		}
		msgs = append(msgs, llm.Message{Role: role, Text: t.Content})
	}
	return msgs
}
