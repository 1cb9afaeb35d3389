// ABOUTME: OpenAI-compatible chat client implementing the Generator contract
// ABOUTME: Targets Gemini's OpenAI endpoint by default; retries with jittered backoff
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/obala/internal/util"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gemini-2.0-flash"
	// DefaultTimeout bounds a single attempt
	DefaultTimeout = 30 * time.Second
)

// ClientConfig holds configuration for the OpenAI-compatible client
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:     apiKey,
		ChatModel:  DefaultChatModel,
		Timeout:    DefaultTimeout,
		MaxRetries: 0,
		RetryDelay: 2 * time.Second,
	}
}

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client     *openai.Client
	chatModel  string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// NewOpenAIClient creates a new client with custom configuration
func NewOpenAIClient(config *ClientConfig, logger zerolog.Logger) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}

	oaiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oaiConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	model := config.ChatModel
	if model == "" {
		model = DefaultChatModel
	}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(oaiConfig),
		chatModel:  model,
		timeout:    timeout,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
		logger:     logger,
	}, nil
}

// Generate sends the role-tagged turns plus the system instruction as one chat completion
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    toChatMessages(req),
		Temperature: req.Params.Temperature,
		MaxTokens:   req.Params.MaxOutputTokens,
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Wait(ctx, c.retryDelay, attempt); err != nil {
				return Response{}, fmt.Errorf("generation cancelled: %w", err)
			}
		}

		resp, err := c.complete(ctx, chatReq)
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			c.logger.Warn().Err(err).Int("attempt", attempt+1).Str("model", c.chatModel).Msg("chat completion failed")
			continue
		}

		return fromChatResponse(resp), nil
	}

	return Response{}, fmt.Errorf("failed to generate after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.CreateChatCompletion(ctx, req)
}

// toChatMessages maps the collaborator vocabulary onto chat roles
func toChatMessages(req Request) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemInstruction != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	return msgs
}

// fromChatResponse converts choices into candidates. A choice carries either
// plain content or multi-part content; only text parts are kept.
func fromChatResponse(resp openai.ChatCompletionResponse) Response {
	out := Response{Candidates: make([]Candidate, 0, len(resp.Choices))}
	for _, choice := range resp.Choices {
		var parts []string
		if choice.Message.Content != "" {
			parts = append(parts, choice.Message.Content)
		}
		for _, part := range choice.Message.MultiContent {
			if part.Type == openai.ChatMessagePartTypeText && part.Text != "" {
				parts = append(parts, part.Text)
			}
		}
		out.Candidates = append(out.Candidates, Candidate{Parts: parts})
	}
	return out
}
