// ABOUTME: Tests for the OpenAI-compatible generation client
// ABOUTME: Runs against an httptest server standing in for the chat completions endpoint
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, url string, retries int) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(&ClientConfig{
		APIKey:     "test-key",
		BaseURL:    url + "/v1/",
		ChatModel:  "gemini-2.0-flash",
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(DefaultConfig(""), zerolog.Nop())
	assert.Error(t, err)
}

func TestGenerate_Success(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Me ho yɛ"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	resp, err := client.Generate(context.Background(), Request{
		Messages: []Message{
			{Role: RoleModel, Text: "Afehyia pa!"},
			{Role: RoleUser, Text: "Ɛte sɛn?"},
		},
		SystemInstruction: "Reply in Twi.",
		Params:            Params{Temperature: 0.4, MaxOutputTokens: 400},
	})
	require.NoError(t, err)
	assert.Equal(t, "Me ho yɛ", resp.Text())

	assert.Equal(t, "gemini-2.0-flash", captured.Model)
	assert.InDelta(t, 0.4, captured.Temperature, 0.0001)
	assert.Equal(t, 400, captured.MaxTokens)
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "assistant", captured.Messages[1].Role)
	assert.Equal(t, "user", captured.Messages[2].Role)
	assert.Equal(t, "Ɛte sɛn?", captured.Messages[2].Content)
}

func TestGenerate_ServerErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	_, err := client.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Text: "hi"}}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "zero retries means exactly one call")
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"busy"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Yoo"}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 2)
	resp, err := client.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Text: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "Yoo", resp.Text())
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	resp, err := client.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Text: "hi"}}})
	require.NoError(t, err, "an empty payload is not a transport error")
	assert.Empty(t, resp.Text())
}

func TestResponse_Text(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{"no candidates", Response{}, ""},
		{"empty parts", Response{Candidates: []Candidate{{}}}, ""},
		{"fragments concatenated", Response{Candidates: []Candidate{{Parts: []string{"Me ho ", "yɛ"}}}}, "Me ho yɛ"},
		{"only first candidate", Response{Candidates: []Candidate{{Parts: []string{"a"}}, {Parts: []string{"b"}}}}, "a"},
		{"whitespace only", Response{Candidates: []Candidate{{Parts: []string{"  ", "\n"}}}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resp.Text())
		})
	}
}

func TestGenerate_TimeoutPerAttempt(t *testing.T) {
	var attempts atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := NewOpenAIClient(&ClientConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1/",
		ChatModel:  "gemini-2.0-flash",
		Timeout:    100 * time.Millisecond,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}, zerolog.Nop())
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Text: "Ɛte sɛn?"}}})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Less(t, time.Since(start), 2*time.Second)
}
