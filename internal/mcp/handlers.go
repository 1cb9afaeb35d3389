// ABOUTME: MCP tool handler implementations for the OBALA assistant
// ABOUTME: Each handler resolves a session and delegates to its event handlers
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/harper/obala/internal/models"
	"github.com/harper/obala/internal/session"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	manager        *session.Manager
	defaultSession string
	logger         zerolog.Logger
}

// NewHandlers creates handlers with a default session for callers that name none
func NewHandlers(manager *session.Manager, logger zerolog.Logger) *Handlers {
	return &Handlers{
		manager:        manager,
		defaultSession: manager.Create().ID(),
		logger:         logger,
	}
}

// DefaultSession returns the ID used when a call names no session
func (h *Handlers) DefaultSession() string {
	return h.defaultSession
}

// SendMessage handles the send_message tool
func (h *Handlers) SendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}

	sess, err := h.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	reply, err := sess.SubmitText(ctx, message)
	if errors.Is(err, models.ErrEmptyContent) {
		return mcp.NewToolResultError("message must not be empty"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("send failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"session_id": sess.ID(),
		"reply":      reply.Assistant,
		"user_turn":  reply.User,
		"compacted":  reply.Compacted,
		"warnings":   warningsOrEmpty(reply.Warnings),
	}
	if reply.AudioRef != "" {
		response["audio_file"] = reply.AudioRef
	}
	return jsonResult(response)
}

// GetConversation handles the get_conversation tool
func (h *Handlers) GetConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := h.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	turns := sess.Conversation()
	return jsonResult(map[string]interface{}{
		"session_id": sess.ID(),
		"turns":      turns,
		"turn_count": len(turns),
		"warnings":   warningsOrEmpty(sess.StartupWarnings()),
	})
}

// TranslateTurn handles the translate_turn tool
func (h *Handlers) TranslateTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	turnID, err := request.RequireString("turn_id")
	if err != nil {
		return mcp.NewToolResultError("turn_id argument is required and must be a string"), nil
	}

	sess, err := h.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, warning, err := sess.Translate(ctx, turnID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("turn %s: %v", turnID, err)), nil
	}
	if warning != nil {
		return mcp.NewToolResultError(warning.Message), nil
	}

	return jsonResult(map[string]interface{}{
		"turn_id":     turnID,
		"translation": text,
	})
}

// ResetConversation handles the reset_conversation tool
func (h *Handlers) ResetConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := h.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess.Reset()
	return jsonResult(map[string]interface{}{
		"session_id": sess.ID(),
		"turns":      sess.Conversation(),
	})
}

// Shutdown closes every session, archiving conversations when enabled
func (h *Handlers) Shutdown() {
	h.logger.Info().Int("sessions", h.manager.Len()).Msg("closing MCP sessions")
	h.manager.CloseAll()
}

func (h *Handlers) session(request mcp.CallToolRequest) (*session.Session, error) {
	id := request.GetString("session_id", h.defaultSession)
	sess, err := h.manager.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return sess, nil
}

func jsonResult(response interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := sonic.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

func warningsOrEmpty(w []models.Warning) []models.Warning {
	if w == nil {
		return []models.Warning{}
	}
	return w
}
