// ABOUTME: Speech Attachment Resolver synthesizes audio for assistant replies
// ABOUTME: Resolves the synthesizer's response shape, checks the file exists, records the locator on the turn
package core

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/harper/obala/internal/conversation"
	"github.com/harper/obala/internal/models"
	"github.com/harper/obala/internal/persona"
	"github.com/harper/obala/internal/speech"
)

// Voice selects the synthesizer's language variant and speaker
type Voice struct {
	Language string
	Speaker  string
}

// DefaultVoice is the Asante Twi male voice
func DefaultVoice() Voice {
	return Voice{Language: "Asante Twi", Speaker: "Male (High)"}
}

// SpeechResolver attaches synthesized audio to assistant turns
type SpeechResolver struct {
	synth     speech.Synthesizer
	voice     Voice
	persona   *persona.Persona
	available atomic.Bool
	stat      func(string) (os.FileInfo, error)
	logger    zerolog.Logger
}

// NewSpeechResolver creates a resolver. A nil synthesizer disables speech output.
// The resolver starts unavailable until CheckAvailability succeeds.
func NewSpeechResolver(synth speech.Synthesizer, voice Voice, p *persona.Persona, logger zerolog.Logger) *SpeechResolver {
	return &SpeechResolver{
		synth:   synth,
		voice:   voice,
		persona: p,
		stat:    os.Stat,
		logger:  logger,
	}
}

// CheckAvailability pings the synthesizer once. An unreachable synthesizer
// disables speech output and yields the warning shown at session start.
func (r *SpeechResolver) CheckAvailability(ctx context.Context) *models.Warning {
	if r.synth == nil {
		r.available.Store(false)
		return nil
	}
	if err := r.synth.Ping(ctx); err != nil {
		r.available.Store(false)
		r.logger.Error().Err(models.NewError(models.KindSpeechSynthesisUnreachable, err)).Msg("speech synthesizer unreachable, speech output disabled")
		w := r.persona.Warning(models.KindSpeechSynthesisUnreachable)
		return &w
	}
	r.available.Store(true)
	return nil
}

// Available reports whether speech output is enabled
func (r *SpeechResolver) Available() bool {
	return r.available.Load()
}

// Attach synthesizes speech for turn and records the locator on the stored turn.
// It returns the locator on success. Users, summaries and failed replies are
// skipped silently, as is everything while the synthesizer is unavailable.
func (r *SpeechResolver) Attach(ctx context.Context, store *conversation.Store, turn models.Turn) (string, *models.Warning) {
	if !turn.IsReply() || !r.Available() {
		return "", nil
	}

	log := r.logger.With().Str("turn_id", turn.TurnID).Logger()

	raw, err := r.synth.Synthesize(ctx, speech.Request{
		Text:     turn.Content,
		Language: r.voice.Language,
		Speaker:  r.voice.Speaker,
	})
	if err != nil {
		log.Error().Err(models.NewError(models.KindSpeechSynthesisFailed, err)).Msg("speech synthesis failed")
		return "", r.warn(models.KindSpeechSynthesisFailed)
	}

	out := speech.ParseOutput(raw)
	if !out.Valid() {
		log.Error().Str("response", out.Raw).Msg("speech response has no usable locator")
		return "", r.warn(models.KindSpeechShapeInvalid)
	}

	if !r.isFile(out.Locator) {
		log.Error().Str("response", out.Raw).Str("locator", out.Locator).Str("shape", out.Shape.String()).Msg("speech file not found")
		return "", r.warn(models.KindSpeechResourceMissing)
	}

	if !store.Update(turn.TurnID, func(t *models.Turn) { t.AudioRef = out.Locator }) {
		log.Debug().Str("locator", out.Locator).Msg("turn left the conversation before audio was attached")
		return "", nil
	}

	log.Debug().Str("locator", out.Locator).Str("shape", out.Shape.String()).Msg("audio attached")
	return out.Locator, nil
}

// AudioExists reports whether a stored locator still names a regular file
func (r *SpeechResolver) AudioExists(locator string) bool {
	return locator != "" && r.isFile(locator)
}

func (r *SpeechResolver) isFile(path string) bool {
	info, err := r.stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (r *SpeechResolver) warn(kind models.ErrorKind) *models.Warning {
	w := r.persona.Warning(kind)
	return &w
}
