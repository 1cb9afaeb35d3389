// ABOUTME: Turn represents a single message in a conversation, authored by the user or the assistant
// ABOUTME: Core data structure shared by the message store, compactor, orchestrator and surfaces
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ErrEmptyContent is returned when a user turn has no text
var ErrEmptyContent = errors.New("user message cannot be empty")

// Turn represents a single conversation turn
type Turn struct {
	TurnID      string    `json:"turn_id"`
	Timestamp   time.Time `json:"timestamp"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	AudioRef    string    `json:"audio_ref,omitempty"`
	Translation string    `json:"translation,omitempty"`
	Summary     bool      `json:"summary,omitempty"`
	Failed      bool      `json:"failed,omitempty"`
}

// NewTurn creates a new Turn with validation
func NewTurn(role Role, content string) (*Turn, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if role == RoleUser && strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	return &Turn{
		TurnID:    generateTurnID(),
		Timestamp: time.Now().UTC(),
		Role:      role,
		Content:   content,
	}, nil
}

// NewAssistantTurn creates an assistant turn. Assistant content is never validated
// because the error sentinel is a legitimate reply.
func NewAssistantTurn(content string) Turn {
	return Turn{
		TurnID:    generateTurnID(),
		Timestamp: time.Now().UTC(),
		Role:      RoleAssistant,
		Content:   content,
	}
}

// NewSummaryTurn creates the synthetic assistant turn that replaces compacted history
func NewSummaryTurn(digest string) Turn {
	t := NewAssistantTurn(digest)
	t.Summary = true
	return t
}

// IsUser reports whether the turn was authored by the user
func (t Turn) IsUser() bool {
	return t.Role == RoleUser
}

// IsAssistant reports whether the turn was authored by the assistant
func (t Turn) IsAssistant() bool {
	return t.Role == RoleAssistant
}

// IsReply reports whether the turn is a genuine assistant reply: not a summary and
// not an error sentinel. Translation and speech synthesis only accept replies.
func (t Turn) IsReply() bool {
	return t.IsAssistant() && !t.Summary && !t.Failed
}

// HasAudio reports whether an audio reference is attached
func (t Turn) HasAudio() bool {
	return t.AudioRef != ""
}

// generateTurnID generates a unique turn identifier
func generateTurnID() string {
	return fmt.Sprintf("turn_%s_%s", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
}
