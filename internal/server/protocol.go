// ABOUTME: WebSocket protocol between the browser chat and the assistant
// ABOUTME: Every frame is a {type, payload} envelope encoded with sonic
package server

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/harper/obala/internal/models"
)

// MessageType enumerates the envelope types
type MessageType string

const (
	// Browser -> assistant
	MsgUserText  MessageType = "user_text"
	MsgUserAudio MessageType = "user_audio"
	MsgTranslate MessageType = "translate"
	MsgReset     MessageType = "reset"
	MsgSync      MessageType = "sync"

	// Assistant -> browser
	MsgConversation MessageType = "conversation"
	MsgTurn         MessageType = "turn"
	MsgAudio        MessageType = "audio"
	MsgTranslation  MessageType = "translation"
	MsgWarning      MessageType = "warning"
	MsgError        MessageType = "error"
)

// Envelope is the outer JSON wrapper for all WebSocket messages
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Browser -> assistant payloads ---

// UserTextPayload carries a typed message
type UserTextPayload struct {
	Text string `json:"text"`
}

// UserAudioPayload carries a recorded voice message, base64 in JSON
type UserAudioPayload struct {
	Audio []byte `json:"audio"`
}

// TranslatePayload asks for the English rendering of a turn
type TranslatePayload struct {
	TurnID string `json:"turn_id"`
}

// --- Assistant -> browser payloads ---

// TurnView is a turn as rendered to the browser. AudioURL is set only when the
// audio file still exists at render time.
type TurnView struct {
	models.Turn
	AudioURL string `json:"audio_url,omitempty"`
}

// ConversationPayload is the full conversation
type ConversationPayload struct {
	SessionID string     `json:"session_id"`
	Turns     []TurnView `json:"turns"`
}

// TurnPayload is one newly appended turn
type TurnPayload struct {
	Turn       TurnView `json:"turn"`
	Transcript string   `json:"transcript,omitempty"`
}

// AudioPayload announces audio attached to a turn
type AudioPayload struct {
	TurnID   string `json:"turn_id"`
	AudioURL string `json:"audio_url"`
}

// TranslationPayload carries a translated turn
type TranslationPayload struct {
	TurnID string `json:"turn_id"`
	Text   string `json:"text"`
}

// ErrorPayload reports a rejected request
type ErrorPayload struct {
	Message string `json:"message"`
}

// Marshal creates a JSON-encoded Envelope from a message type and payload
func Marshal(msgType MessageType, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := sonic.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: marshal payload for %q: %w", msgType, err)
		}
		raw = b
	}
	return sonic.Marshal(Envelope{
		Type:    msgType,
		Payload: raw,
	})
}

// Unmarshal parses a JSON-encoded Envelope, returning the message type and raw payload
func Unmarshal(data []byte) (MessageType, json.RawMessage, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("protocol: envelope missing type field")
	}
	return env.Type, env.Payload, nil
}

// UnmarshalPayload decodes a raw JSON payload into a typed struct
func UnmarshalPayload[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := sonic.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("protocol: unmarshal payload: %w", err)
	}
	return v, nil
}
