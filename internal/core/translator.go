// ABOUTME: Translator renders assistant replies in English on demand
// ABOUTME: Results are cached on the turn so repeated toggles cost no extra call
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

// ErrNotTranslatable is logged for turns that are not genuine replies
var ErrNotTranslatable = errors.New("only assistant replies can be translated")

// Translator translates assistant turns
type Translator struct {
	gen     llm.Generator
	persona *persona.Persona
	params  llm.Params
	logger  zerolog.Logger
}

// NewTranslator creates a translator
func NewTranslator(gen llm.Generator, p *persona.Persona, params llm.Params, logger zerolog.Logger) *Translator {
	return &Translator{gen: gen, persona: p, params: params, logger: logger}
}

// Translate returns the English rendering of turn, caching it on the stored turn
func (t *Translator) Translate(ctx context.Context, store *conversation.Store, turn models.Turn) (string, *models.Warning) {
	if turn.Translation != "" {
		return turn.Translation, nil
	}

	log := t.logger.With().Str("turn_id", turn.TurnID).Logger()

	if !turn.IsReply() {
		log.Warn().Err(ErrNotTranslatable).Str("role", string(turn.Role)).Bool("failed", turn.Failed).Msg("translation rejected")
		return "", t.warn()
	}

	resp, err := t.gen.Generate(ctx, llm.Request{
		Messages:          []llm.Message{{Role: llm.RoleUser, Text: turn.Content}},
		SystemInstruction: t.persona.TranslationInstruction,
		Params:            t.params,
	})
	if err == nil && resp.Text() == "" {
		err = ErrEmptyReply
	}
	if err != nil {
		log.Error().Err(models.NewError(models.KindTranslationFailed, err)).Msg("translation failed")
		return "", t.warn()
	}

	text := resp.Text()
	store.Update(turn.TurnID, func(tt *models.Turn) { tt.Translation = text })
	return text, nil
}

func (t *Translator) warn() *models.Warning {
	w := t.persona.Warning(models.KindTranslationFailed)
	return &w
}
