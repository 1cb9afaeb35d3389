// ABOUTME: Transcript is a finished conversation as written to the archive
// ABOUTME: Captured when a session is reset or closed
package models

import "time"

// Transcript is an archived conversation
type Transcript struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Turns     []Turn    `json:"turns"`
}

// UserTurns counts the turns authored by the user
func (t *Transcript) UserTurns() int {
	n := 0
	for _, turn := range t.Turns {
		if turn.IsUser() {
			n++
		}
	}
	return n
}

// Preview returns the first user message, truncated to maxLen runes
func (t *Transcript) Preview(maxLen int) string {
	for _, turn := range t.Turns {
		if !turn.IsUser() {
			continue
		}
		runes := []rune(turn.Content)
		if len(runes) <= maxLen {
			return turn.Content
		}
		return string(runes[:maxLen]) + "..."
	}
	return ""
}
