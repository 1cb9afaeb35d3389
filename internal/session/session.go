// ABOUTME: Session is the explicit per-conversation state object and its event handlers
// ABOUTME: Each handler runs store -> compactor -> orchestrator -> speech in strict order under the session lock
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harper/obala/internal/conversation"
	"github.com/harper/obala/internal/core"
	"github.com/harper/obala/internal/models"
	"github.com/harper/obala/internal/persona"
	"github.com/harper/obala/internal/stt"
)

var (
	// ErrTurnNotFound is returned for turn IDs not in the conversation
	ErrTurnNotFound = errors.New("turn not found")
	// ErrSessionNotFound is returned for unknown session IDs
	ErrSessionNotFound = errors.New("session not found")
)

// Archiver stores finished conversations
type Archiver interface {
	SaveTranscript(t *models.Transcript) error
}

// Deps are the stateless collaborators every session shares
type Deps struct {
	Persona      *persona.Persona
	Compactor    *core.Compactor
	Orchestrator *core.Orchestrator
	Speech       *core.SpeechResolver
	Translator   *core.Translator
	Transcriber  stt.Transcriber // nil disables voice input
	STTLanguage  string
	Archive      Archiver // nil disables archiving
	Logger       zerolog.Logger
}

// Reply is the outcome of a user event
type Reply struct {
	User       *models.Turn     `json:"user,omitempty"`
	Assistant  *models.Turn     `json:"assistant,omitempty"`
	AudioRef   string           `json:"audio_ref,omitempty"`
	Warnings   []models.Warning `json:"warnings,omitempty"`
	Compacted  bool             `json:"compacted,omitempty"`
	Transcript string           `json:"transcript,omitempty"`
}

// Session owns one conversation
type Session struct {
	id        string
	startedAt time.Time
	store     *conversation.Store
	deps      Deps
	startup   []models.Warning
	mu        sync.Mutex
	logger    zerolog.Logger
}

func newSession(id string, deps Deps, startup []models.Warning) *Session {
	return &Session{
		id:        id,
		startedAt: time.Now().UTC(),
		store:     conversation.New(deps.Persona.Greeting),
		deps:      deps,
		startup:   startup,
		logger:    deps.Logger.With().Str("session", id).Logger(),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// StartupWarnings returns the warnings raised when collaborators were initialized
func (s *Session) StartupWarnings() []models.Warning {
	out := make([]models.Warning, len(s.startup))
	copy(out, s.startup)
	return out
}

// Conversation returns a copy of the ordered turns
func (s *Session) Conversation() []models.Turn {
	return s.store.All()
}

// Turn returns a copy of one turn
func (s *Session) Turn(turnID string) (models.Turn, bool) {
	return s.store.Get(turnID)
}

// Respond appends the user's text, compacts if needed, and generates the reply.
// Speech is not synthesized; call Speak with the reply's ID.
func (s *Session) Respond(ctx context.Context, text string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.respond(ctx, text)
}

func (s *Session) respond(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	user, err := models.NewTurn(models.RoleUser, text)
	if err != nil {
		return Reply{}, err
	}
	s.store.Append(*user)

	result := s.deps.Compactor.MaybeCompact(ctx, s.store)

	assistant, warning := s.deps.Orchestrator.GenerateReply(ctx, s.store)

	reply := Reply{User: user, Assistant: &assistant, Compacted: result.Compacted}
	if warning != nil {
		reply.Warnings = append(reply.Warnings, *warning)
	}

	s.logger.Info().
		Str("turn_id", assistant.TurnID).
		Bool("failed", assistant.Failed).
		Bool("compacted", result.Compacted).
		Int("turns", s.store.Len()).
		Msg("reply appended")
	return reply, nil
}

// Speak attaches synthesized audio to an assistant turn
func (s *Session) Speak(ctx context.Context, turnID string) (string, *models.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn, ok := s.store.Get(turnID)
	if !ok {
		return "", nil, ErrTurnNotFound
	}
	ref, warning := s.deps.Speech.Attach(ctx, s.store, turn)
	return ref, warning, nil
}

// SubmitText runs Respond then Speak for the new reply
func (s *Session) SubmitText(ctx context.Context, text string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitText(ctx, text)
}

func (s *Session) submitText(ctx context.Context, text string) (Reply, error) {
	reply, err := s.respond(ctx, text)
	if err != nil {
		return reply, err
	}

	ref, warning := s.deps.Speech.Attach(ctx, s.store, *reply.Assistant)
	if warning != nil {
		reply.Warnings = append(reply.Warnings, *warning)
	}
	if ref != "" {
		reply.AudioRef = ref
		reply.Assistant.AudioRef = ref
	}
	return reply, nil
}

// SubmitVoice transcribes recorded audio and submits the transcript as text.
// When voice input is disabled, fails or hears nothing, a warning is returned
// and the conversation is unchanged.
func (s *Session) SubmitVoice(ctx context.Context, audio []byte) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deps.Transcriber == nil {
		s.logger.Warn().Msg("voice input received but speech recognition is disabled")
		return s.warnOnly(models.KindTranscriptionFailed), nil
	}

	text, err := s.deps.Transcriber.Transcribe(ctx, audio, s.deps.STTLanguage)
	if err != nil {
		s.logger.Error().Err(models.NewError(models.KindTranscriptionFailed, err)).Int("bytes", len(audio)).Msg("transcription failed")
		return s.warnOnly(models.KindTranscriptionFailed), nil
	}
	if strings.TrimSpace(text) == "" {
		s.logger.Info().Int("bytes", len(audio)).Msg("no speech detected")
		return s.warnOnly(models.KindNoSpeechDetected), nil
	}

	reply, err := s.submitText(ctx, text)
	reply.Transcript = text
	return reply, err
}

// Translate returns the English rendering of an assistant turn
func (s *Session) Translate(ctx context.Context, turnID string) (string, *models.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn, ok := s.store.Get(turnID)
	if !ok {
		return "", nil, ErrTurnNotFound
	}
	text, warning := s.deps.Translator.Translate(ctx, s.store, turn)
	return text, warning, nil
}

// Reset archives the conversation when an archive is configured and starts over
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.archive()
	s.store.Reset(s.deps.Persona.Greeting)
	s.startedAt = time.Now().UTC()
	s.logger.Info().Msg("conversation reset")
}

// AudioExists reports whether a locator still names a file on disk
func (s *Session) AudioExists(locator string) bool {
	return s.deps.Speech.AudioExists(locator)
}

// close archives the conversation; the manager calls it when the session ends
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive()
}

// archive saves conversations that have at least one user turn
func (s *Session) archive() {
	if s.deps.Archive == nil || s.store.Len() < 2 {
		return
	}
	t := &models.Transcript{
		SessionID: s.id,
		StartedAt: s.startedAt,
		EndedAt:   time.Now().UTC(),
		Turns:     s.store.All(),
	}
	if err := s.deps.Archive.SaveTranscript(t); err != nil {
		s.logger.Error().Err(err).Msg("failed to archive transcript")
		return
	}
	s.logger.Debug().Int("turns", len(t.Turns)).Msg("transcript archived")
}

func (s *Session) warnOnly(kind models.ErrorKind) Reply {
	return Reply{Warnings: []models.Warning{s.deps.Persona.Warning(kind)}}
}
