// ABOUTME: Centralized configuration for the OBALA assistant
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// GeminiOpenAIBaseURL is Gemini's OpenAI-compatible endpoint
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Config holds all configuration for the assistant
type Config struct {
	// Language generation settings
	LLMKey        string
	LLMBaseURL    string
	LLMModel      string
	LLMTimeout    time.Duration
	LLMMaxRetries int
	LLMRetryDelay time.Duration

	ReplyTemperature   float64
	ReplyMaxTokens     int
	SummaryTemperature float64
	SummaryMaxTokens   int

	// Memory settings
	MaxTurns    int
	RecentTurns int

	// Speech synthesis settings
	TTSEnabled  bool
	TTSURL      string
	TTSAPIName  string
	TTSLanguage string
	TTSSpeaker  string
	TTSToken    string
	TTSTimeout  time.Duration
	AudioDir    string

	// Speech recognition settings
	STTEnabled    bool
	STTLanguage   string
	STTEncoding   string
	STTSampleRate int
	STTTimeout    time.Duration

	// Surfaces
	ServerAddr           string
	ServerMaxMessageSize int64
	PersonaFile          string
	LogLevel             string

	// Transcript archive (Charm KV)
	ArchiveEnabled bool
	CharmHost      string
	CharmDBName    string
	AutoSync       bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	llmKey := os.Getenv("GEMINI_API_KEY")
	if llmKey == "" {
		llmKey = os.Getenv("LLM_API_KEY")
	}

	cfg := &Config{
		LLMKey:        llmKey,
		LLMBaseURL:    getEnv("LLM_BASE_URL", GeminiOpenAIBaseURL),
		LLMModel:      getEnv("LLM_MODEL", "gemini-2.0-flash"),
		LLMTimeout:    getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		LLMMaxRetries: getEnvInt("LLM_MAX_RETRIES", 0),
		LLMRetryDelay: getEnvDuration("LLM_RETRY_DELAY", 2*time.Second),

		ReplyTemperature:   getEnvFloat("REPLY_TEMPERATURE", 0.4),
		ReplyMaxTokens:     getEnvInt("REPLY_MAX_TOKENS", 400),
		SummaryTemperature: getEnvFloat("SUMMARY_TEMPERATURE", 0.2),
		SummaryMaxTokens:   getEnvInt("SUMMARY_MAX_TOKENS", 200),

		MaxTurns:    getEnvInt("MEMORY_MAX_TURNS", 8),
		RecentTurns: getEnvInt("MEMORY_RECENT_TURNS", 6),

		TTSEnabled:  getEnvBool("TTS_ENABLED", true),
		TTSURL:      getEnv("TTS_URL", "https://ghana-nlp-southern-ghana-tts-public.hf.space"),
		TTSAPIName:  getEnv("TTS_API_NAME", "predict"),
		TTSLanguage: getEnv("TTS_LANGUAGE", "Asante Twi"),
		TTSSpeaker:  getEnv("TTS_SPEAKER", "Male (High)"),
		TTSToken:    os.Getenv("HF_TOKEN"),
		TTSTimeout:  getEnvDuration("TTS_TIMEOUT", 60*time.Second),
		AudioDir:    getEnv("AUDIO_DIR", filepath.Join(os.TempDir(), "obala-audio")),

		STTEnabled:    getEnvBool("STT_ENABLED", false),
		STTLanguage:   getEnv("STT_LANGUAGE", "en-GH"),
		STTEncoding:   getEnv("STT_ENCODING", "WEBM_OPUS"),
		STTSampleRate: getEnvInt("STT_SAMPLE_RATE", 48000),
		STTTimeout:    getEnvDuration("STT_TIMEOUT", 30*time.Second),

		ServerAddr:           getEnv("SERVER_ADDR", ":8080"),
		ServerMaxMessageSize: int64(getEnvInt("SERVER_MAX_MESSAGE_BYTES", 10<<20)),
		PersonaFile:          os.Getenv("PERSONA_FILE"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),

		ArchiveEnabled: getEnvBool("ARCHIVE_ENABLED", false),
		CharmHost:      getEnv("CHARM_HOST", "cloud.charm.sh"),
		CharmDBName:    getEnv("CHARM_DB", "obala"),
		AutoSync:       getEnvBool("CHARM_AUTO_SYNC", true),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.RecentTurns < 1 {
		return fmt.Errorf("MEMORY_RECENT_TURNS must be >= 1, got %d", c.RecentTurns)
	}
	if c.RecentTurns+1 > c.MaxTurns {
		return fmt.Errorf("MEMORY_RECENT_TURNS + 1 must be <= MEMORY_MAX_TURNS, got %d and %d", c.RecentTurns, c.MaxTurns)
	}
	if c.LLMMaxRetries < 0 || c.LLMMaxRetries > 10 {
		return fmt.Errorf("LLM_MAX_RETRIES must be 0-10, got %d", c.LLMMaxRetries)
	}
	if c.ReplyTemperature < 0 || c.ReplyTemperature > 2 {
		return fmt.Errorf("REPLY_TEMPERATURE must be 0-2, got %f", c.ReplyTemperature)
	}
	if c.SummaryTemperature < 0 || c.SummaryTemperature > 2 {
		return fmt.Errorf("SUMMARY_TEMPERATURE must be 0-2, got %f", c.SummaryTemperature)
	}
	if c.ReplyMaxTokens <= 0 || c.SummaryMaxTokens <= 0 {
		return fmt.Errorf("max token budgets must be positive, got reply=%d summary=%d", c.ReplyMaxTokens, c.SummaryMaxTokens)
	}
	if c.ServerMaxMessageSize < 0 {
		return fmt.Errorf("SERVER_MAX_MESSAGE_BYTES must not be negative, got %d", c.ServerMaxMessageSize)
	}
	if c.SummaryMaxTokens > c.ReplyMaxTokens {
		return fmt.Errorf("SUMMARY_MAX_TOKENS (%d) must not exceed REPLY_MAX_TOKENS (%d)", c.SummaryMaxTokens, c.ReplyMaxTokens)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
