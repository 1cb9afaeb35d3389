// ABOUTME: MCP tool definitions and registration for the OBALA assistant
// ABOUTME: Lets LLM agents hold a Twi conversation through the same session handlers as the chat surfaces
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/harper/obala/internal/session"
)

var sessionIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Session to use (default: the server's own session)",
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, manager *session.Manager, logger zerolog.Logger) *Handlers {
	handlers := NewHandlers(manager, logger)

	// 1. send_message - one full user event: reply plus speech
	server.AddTool(mcp.Tool{
		Name:        "send_message",
		Description: "Send a user message to OBALA. Returns the assistant's Twi reply, the local audio file when speech was synthesized, and any warnings.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "User message text",
				},
				"session_id": sessionIDProperty,
			},
			Required: []string{"message"},
		},
	}, handlers.SendMessage)

	// 2. get_conversation - the retained turns
	server.AddTool(mcp.Tool{
		Name:        "get_conversation",
		Description: "Get the conversation as currently retained, oldest first. Older turns may have been folded into a summary turn.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty,
			},
		},
	}, handlers.GetConversation)

	// 3. translate_turn - English rendering of one reply
	server.AddTool(mcp.Tool{
		Name:        "translate_turn",
		Description: "Translate one assistant reply into English. Translations are cached on the turn.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"turn_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the assistant turn to translate",
				},
				"session_id": sessionIDProperty,
			},
			Required: []string{"turn_id"},
		},
	}, handlers.TranslateTurn)

	// 4. reset_conversation - archive and start over
	server.AddTool(mcp.Tool{
		Name:        "reset_conversation",
		Description: "Start a fresh conversation with OBALA's greeting. The old one is archived when archiving is enabled.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty,
			},
		},
	}, handlers.ResetConversation)

	return handlers
}
