// ABOUTME: Tests for shared utility functions used by CLI commands
// ABOUTME: Verifies truncate, formatTime, warning output and validation helpers

package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/harper/obala/internal/models"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"very short maxLen", "hello", 2, "he"},
		{"empty string", "", 10, ""},
		{"twi text counts runes", "Ɛte sɛn? Wo ho te sɛn?", 8, "Ɛte s..."},
		{"short maxLen keeps whole runes", "ɛɔɛɔ", 2, "ɛɔ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		input    time.Time
		contains string
	}{
		{"just now (seconds ago)", now.Add(-30 * time.Second), "just now"},
		{"minutes ago", now.Add(-5 * time.Minute), "m ago"},
		{"hours ago", now.Add(-3 * time.Hour), "h ago"},
		{"days ago", now.Add(-2 * 24 * time.Hour), "d ago"},
		{"weeks ago (shows date)", now.Add(-14 * 24 * time.Hour), "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTime(tt.input)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("formatTime() = %q, want to contain %q", got, tt.contains)
			}
		})
	}
}

func TestPrintWarnings(t *testing.T) {
	var out bytes.Buffer
	printWarnings(&out, []models.Warning{
		{Kind: models.KindSpeechSynthesisFailed, Message: "first"},
		{Kind: models.KindTranslationFailed, Message: "second"},
	})

	if got, want := out.String(), "! first\n! second\n"; got != want {
		t.Errorf("printWarnings() = %q, want %q", got, want)
	}
}

func TestValidatePositiveInt(t *testing.T) {
	if err := validatePositiveInt(1, "limit"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validatePositiveInt(0, "limit"); err == nil {
		t.Error("expected error for zero")
	}
}
