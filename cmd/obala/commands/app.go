// ABOUTME: Builds the shared collaborators every surface runs on
// ABOUTME: Loads .env and config, then wires persona, LLM, speech, STT and archive into a session manager
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/harper/obala/internal/charm"
	"github.com/harper/obala/internal/config"
	"github.com/harper/obala/internal/core"
	"github.com/harper/obala/internal/llm"
	"github.com/harper/obala/internal/logging"
	"github.com/harper/obala/internal/models"
	"github.com/harper/obala/internal/persona"
	"github.com/harper/obala/internal/session"
	"github.com/harper/obala/internal/speech"
	"github.com/harper/obala/internal/stt"
)

// startupTimeout bounds the synthesizer ping and client construction
const startupTimeout = 15 * time.Second

// app is one running assistant: config, logger and the session manager
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	persona *persona.Persona
	manager *session.Manager

	transcriber *stt.GoogleTranscriber
	archive     *charm.Client
}

// loadConfig reads .env and the environment
func loadConfig() (*config.Config, zerolog.Logger, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, newLogger(cfg), nil
}

// newLogger applies --verbose and --quiet over LOG_LEVEL
func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	} else if quiet {
		level = "error"
	}
	return logging.New(os.Stderr, level)
}

// newApp loads configuration and connects every collaborator
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	client, err := llm.NewOpenAIClient(&llm.ClientConfig{
		APIKey:     cfg.LLMKey,
		BaseURL:    cfg.LLMBaseURL,
		ChatModel:  cfg.LLMModel,
		Timeout:    cfg.LLMTimeout,
		MaxRetries: cfg.LLMMaxRetries,
		RetryDelay: cfg.LLMRetryDelay,
	}, logging.Component(logger, "llm"))
	if err != nil {
		return nil, fmt.Errorf("set GEMINI_API_KEY to talk to OBALA: %w", err)
	}

	return assemble(ctx, cfg, logger, client)
}

// assemble wires the components around a generator. Speech output, voice
// input and archiving degrade to warnings or logs when they cannot start.
func assemble(ctx context.Context, cfg *config.Config, logger zerolog.Logger, gen llm.Generator) (*app, error) {
	p, err := persona.Load(cfg.PersonaFile)
	if err != nil {
		return nil, err
	}

	replyParams := llm.Params{Temperature: float32(cfg.ReplyTemperature), MaxOutputTokens: cfg.ReplyMaxTokens}
	summaryParams := llm.Params{Temperature: float32(cfg.SummaryTemperature), MaxOutputTokens: cfg.SummaryMaxTokens}

	compactor, err := core.NewCompactor(gen, p, core.MemoryConfig{
		MaxTurns:    cfg.MaxTurns,
		RecentTurns: cfg.RecentTurns,
	}, summaryParams, logging.Component(logger, "compactor"))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, persona: p}
	var startup []models.Warning

	var synth speech.Synthesizer
	if cfg.TTSEnabled {
		client, err := speech.NewGradioClient(speech.GradioConfig{
			BaseURL:     cfg.TTSURL,
			APIName:     cfg.TTSAPIName,
			Token:       cfg.TTSToken,
			Timeout:     cfg.TTSTimeout,
			DownloadDir: cfg.AudioDir,
		}, logging.Component(logger, "tts"))
		if err != nil {
			logger.Error().Err(err).Msg("speech synthesizer not configured")
			startup = append(startup, p.Warning(models.KindSpeechSynthesisUnreachable))
		} else {
			synth = client
		}
	}

	resolver := core.NewSpeechResolver(synth, core.Voice{
		Language: cfg.TTSLanguage,
		Speaker:  cfg.TTSSpeaker,
	}, p, logging.Component(logger, "speech"))

	pingCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	if w := resolver.CheckAvailability(pingCtx); w != nil {
		startup = append(startup, *w)
	}
	cancel()

	deps := session.Deps{
		Persona:      p,
		Compactor:    compactor,
		Orchestrator: core.NewOrchestrator(gen, p, cfg.RecentTurns, replyParams, logging.Component(logger, "orchestrator")),
		Speech:       resolver,
		Translator:   core.NewTranslator(gen, p, replyParams, logging.Component(logger, "translator")),
		STTLanguage:  cfg.STTLanguage,
		Logger:       logging.Component(logger, "session"),
	}

	if cfg.STTEnabled {
		t, err := stt.NewGoogleTranscriber(ctx, stt.Config{
			Encoding:        cfg.STTEncoding,
			SampleRateHertz: cfg.STTSampleRate,
			Timeout:         cfg.STTTimeout,
		}, logging.Component(logger, "stt"))
		if err != nil {
			logger.Warn().Err(err).Msg("speech recognition unavailable, voice input disabled")
		} else {
			a.transcriber = t
			deps.Transcriber = t
		}
	}

	if cfg.ArchiveEnabled {
		archive, err := openArchive(cfg, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("transcript archive unavailable")
		} else {
			a.archive = archive
			deps.Archive = archive
		}
	}

	a.manager = session.NewManager(deps, startup)
	logger.Debug().
		Bool("speech", resolver.Available()).
		Bool("voice_input", a.transcriber != nil).
		Bool("archive", a.archive != nil).
		Msg("assistant ready")
	return a, nil
}

// openArchive connects to the charm transcript archive
func openArchive(cfg *config.Config, logger zerolog.Logger) (*charm.Client, error) {
	return charm.NewClient(&charm.Config{
		Host:     cfg.CharmHost,
		DBName:   cfg.CharmDBName,
		AutoSync: cfg.AutoSync,
	}, logging.Component(logger, "archive"))
}

// Close ends every session, then releases the clients they used
func (a *app) Close() {
	a.manager.CloseAll()
	if a.transcriber != nil {
		if err := a.transcriber.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("error closing speech recognition client")
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("error closing transcript archive")
		}
	}
}
