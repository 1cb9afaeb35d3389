// ABOUTME: Tests for Turn model creation and validation
// ABOUTME: Verifies NewTurn constructor, role handling and reply classification
package models

import (
	"errors"
	"strings"
	"testing"
)

func TestNewTurn(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		content string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid user turn",
			role:    RoleUser,
			content: "Ɛte sɛn?",
		},
		{
			name:    "valid assistant turn",
			role:    RoleAssistant,
			content: "Me ho yɛ",
		},
		{
			name:    "empty user message",
			role:    RoleUser,
			content: "",
			wantErr: true,
			errMsg:  "user message cannot be empty",
		},
		{
			name:    "whitespace-only user message",
			role:    RoleUser,
			content: "   \t\n  ",
			wantErr: true,
			errMsg:  "user message cannot be empty",
		},
		{
			name:    "empty assistant content is allowed",
			role:    RoleAssistant,
			content: "",
		},
		{
			name:    "unknown role",
			role:    Role("system"),
			content: "hello",
			wantErr: true,
			errMsg:  "invalid role",
		},
		{
			name:    "long message",
			role:    RoleUser,
			content: strings.Repeat("akwaaba ", 1000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn, err := NewTurn(tt.role, tt.content)

			if (err != nil) != tt.wantErr {
				t.Errorf("NewTurn() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if err != nil {
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("NewTurn() error = %q, want to contain %q", err.Error(), tt.errMsg)
				}
				return
			}

			if turn == nil {
				t.Fatal("NewTurn() returned nil turn without error")
			}
			if turn.Role != tt.role {
				t.Errorf("Role = %q, want %q", turn.Role, tt.role)
			}
			if turn.Content != tt.content {
				t.Errorf("Content = %q, want %q", turn.Content, tt.content)
			}
			if !strings.HasPrefix(turn.TurnID, "turn_") {
				t.Errorf("TurnID = %q, should start with 'turn_'", turn.TurnID)
			}
			if turn.Timestamp.IsZero() {
				t.Error("Timestamp should be set")
			}
			if turn.HasAudio() {
				t.Error("new turn should not carry audio")
			}
		})
	}
}

func TestNewTurn_EmptyIsSentinelError(t *testing.T) {
	_, err := NewTurn(RoleUser, " ")
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("error = %v, want ErrEmptyContent", err)
	}
}

func TestNewTurn_UniqueIDs(t *testing.T) {
	ids := make(map[string]bool)

	for i := 0; i < 10; i++ {
		turn := NewAssistantTurn("reply")
		if ids[turn.TurnID] {
			t.Errorf("Duplicate TurnID generated: %s", turn.TurnID)
		}
		ids[turn.TurnID] = true
	}
}

func TestTurn_IsReply(t *testing.T) {
	reply := NewAssistantTurn("Me ho yɛ")
	summary := NewSummaryTurn("digest")
	failed := NewAssistantTurn("sentinel")
	failed.Failed = true
	user, _ := NewTurn(RoleUser, "hi")

	tests := []struct {
		name string
		turn Turn
		want bool
	}{
		{"genuine reply", reply, true},
		{"summary turn", summary, false},
		{"failed reply", failed, false},
		{"user turn", *user, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.turn.IsReply(); got != tt.want {
				t.Errorf("IsReply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewSummaryTurn(t *testing.T) {
	turn := NewSummaryTurn("Yɛkasa faa adwuma ho")

	if !turn.Summary {
		t.Error("Summary flag should be set")
	}
	if turn.Role != RoleAssistant {
		t.Errorf("Role = %q, want assistant", turn.Role)
	}
}

func TestTurn_TurnIDFormat(t *testing.T) {
	turn := NewAssistantTurn("response")

	// TurnID format should be: turn_YYYYMMDD_HHMMSS_<uuid>
	parts := strings.Split(turn.TurnID, "_")
	if len(parts) != 4 {
		t.Fatalf("TurnID format unexpected: %s", turn.TurnID)
	}
	if parts[0] != "turn" {
		t.Errorf("TurnID should start with 'turn', got: %s", parts[0])
	}
	if len(parts[1]) != 8 {
		t.Errorf("TurnID date part should be 8 digits, got: %s", parts[1])
	}
	if len(parts[2]) != 6 {
		t.Errorf("TurnID time part should be 6 digits, got: %s", parts[2])
	}
}
