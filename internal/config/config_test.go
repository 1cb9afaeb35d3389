// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies environment variable parsing and validation
package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment to test defaults
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LLMBaseURL != GeminiOpenAIBaseURL {
		t.Errorf("LLMBaseURL = %s, want %s", cfg.LLMBaseURL, GeminiOpenAIBaseURL)
	}
	if cfg.LLMModel != "gemini-2.0-flash" {
		t.Errorf("LLMModel = %s, want gemini-2.0-flash", cfg.LLMModel)
	}
	if cfg.LLMTimeout != 30*time.Second {
		t.Errorf("LLMTimeout = %v, want 30s", cfg.LLMTimeout)
	}
	if cfg.LLMMaxRetries != 0 {
		t.Errorf("LLMMaxRetries = %d, want 0", cfg.LLMMaxRetries)
	}
	if cfg.ReplyTemperature != 0.4 {
		t.Errorf("ReplyTemperature = %f, want 0.4", cfg.ReplyTemperature)
	}
	if cfg.ReplyMaxTokens != 400 {
		t.Errorf("ReplyMaxTokens = %d, want 400", cfg.ReplyMaxTokens)
	}
	if cfg.SummaryTemperature >= cfg.ReplyTemperature {
		t.Errorf("SummaryTemperature = %f, want below reply temperature", cfg.SummaryTemperature)
	}
	if cfg.MaxTurns != 8 {
		t.Errorf("MaxTurns = %d, want 8", cfg.MaxTurns)
	}
	if cfg.RecentTurns != 6 {
		t.Errorf("RecentTurns = %d, want 6", cfg.RecentTurns)
	}
	if !cfg.TTSEnabled {
		t.Error("TTSEnabled = false, want true")
	}
	if cfg.TTSLanguage != "Asante Twi" {
		t.Errorf("TTSLanguage = %s, want Asante Twi", cfg.TTSLanguage)
	}
	if cfg.TTSSpeaker != "Male (High)" {
		t.Errorf("TTSSpeaker = %s, want Male (High)", cfg.TTSSpeaker)
	}
	if cfg.STTEnabled {
		t.Error("STTEnabled = true, want false")
	}
	if cfg.ArchiveEnabled {
		t.Error("ArchiveEnabled = true, want false")
	}
	if cfg.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %s, want :8080", cfg.ServerAddr)
	}
	if cfg.ServerMaxMessageSize != 10<<20 {
		t.Errorf("ServerMaxMessageSize = %d, want %d", cfg.ServerMaxMessageSize, 10<<20)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("GEMINI_API_KEY", "test-key")
	os.Setenv("LLM_MODEL", "gemini-1.5-pro")
	os.Setenv("LLM_TIMEOUT", "45s")
	os.Setenv("LLM_MAX_RETRIES", "2")
	os.Setenv("MEMORY_MAX_TURNS", "12")
	os.Setenv("MEMORY_RECENT_TURNS", "10")
	os.Setenv("TTS_ENABLED", "false")
	os.Setenv("STT_ENABLED", "1")
	os.Setenv("STT_LANGUAGE", "en-US")
	os.Setenv("ARCHIVE_ENABLED", "true")
	os.Setenv("CHARM_DB", "test_db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LLMKey != "test-key" {
		t.Errorf("LLMKey = %s, want test-key", cfg.LLMKey)
	}
	if cfg.LLMModel != "gemini-1.5-pro" {
		t.Errorf("LLMModel = %s, want gemini-1.5-pro", cfg.LLMModel)
	}
	if cfg.LLMTimeout != 45*time.Second {
		t.Errorf("LLMTimeout = %v, want 45s", cfg.LLMTimeout)
	}
	if cfg.LLMMaxRetries != 2 {
		t.Errorf("LLMMaxRetries = %d, want 2", cfg.LLMMaxRetries)
	}
	if cfg.MaxTurns != 12 || cfg.RecentTurns != 10 {
		t.Errorf("MaxTurns/RecentTurns = %d/%d, want 12/10", cfg.MaxTurns, cfg.RecentTurns)
	}
	if cfg.TTSEnabled {
		t.Error("TTSEnabled = true, want false")
	}
	if !cfg.STTEnabled {
		t.Error("STTEnabled = false, want true")
	}
	if cfg.STTLanguage != "en-US" {
		t.Errorf("STTLanguage = %s, want en-US", cfg.STTLanguage)
	}
	if !cfg.ArchiveEnabled {
		t.Error("ArchiveEnabled = false, want true")
	}
	if cfg.CharmDBName != "test_db" {
		t.Errorf("CharmDBName = %s, want test_db", cfg.CharmDBName)
	}
}

func TestLoad_FallbackKey(t *testing.T) {
	os.Clearenv()
	os.Setenv("LLM_API_KEY", "generic-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.LLMKey != "generic-key" {
		t.Errorf("LLMKey = %s, want generic-key", cfg.LLMKey)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			MaxTurns:           8,
			RecentTurns:        6,
			ReplyTemperature:   0.4,
			ReplyMaxTokens:     400,
			SummaryTemperature: 0.2,
			SummaryMaxTokens:   200,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"recent equals max", func(c *Config) { c.RecentTurns = 8 }, true},
		{"recent plus one equals max", func(c *Config) { c.RecentTurns = 7 }, false},
		{"recent zero", func(c *Config) { c.RecentTurns = 0 }, true},
		{"retries too high", func(c *Config) { c.LLMMaxRetries = 15 }, true},
		{"retries negative", func(c *Config) { c.LLMMaxRetries = -1 }, true},
		{"temperature too high", func(c *Config) { c.ReplyTemperature = 3 }, true},
		{"summary budget above reply", func(c *Config) { c.SummaryMaxTokens = 800 }, true},
		{"zero reply budget", func(c *Config) { c.ReplyMaxTokens = 0 }, true},
		{"negative message size", func(c *Config) { c.ServerMaxMessageSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		defaultVal bool
		want       bool
	}{
		{"empty uses default true", "", true, true},
		{"empty uses default false", "", false, false},
		{"true", "true", false, true},
		{"1", "1", false, true},
		{"false", "false", true, false},
		{"0", "0", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			got := getEnvBool("TEST_BOOL", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}
