// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Text shortening, relative times and warning rendering
package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/harper/obala/internal/models"
)

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatTime formats a time for display
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	if diff < time.Minute {
		return "just now"
	} else if diff < time.Hour {
		mins := int(diff.Minutes())
		return fmt.Sprintf("%dm ago", mins)
	} else if diff < 24*time.Hour {
		hours := int(diff.Hours())
		return fmt.Sprintf("%dh ago", hours)
	} else if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Format("2006-01-02")
}

// printWarnings writes one line per warning
func printWarnings(w io.Writer, warnings []models.Warning) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "! %s\n", warning.Message)
	}
}

// wantJSON reports whether output should be JSON
func wantJSON() bool {
	return outputFormat == "json"
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}
