// ABOUTME: Collaborator timeouts through the real HTTP clients
// ABOUTME: A hung generation or synthesis call ends in that call's own failure kind
package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/obala/internal/conversation"
	"github.com/harper/obala/internal/llm"
	"github.com/harper/obala/internal/models"
	"github.com/harper/obala/internal/persona"
	"github.com/harper/obala/internal/speech"
)

const shortTimeout = 100 * time.Millisecond

// hangingServer answers /config and stalls every other request until the client gives up
func hangingServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/config" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return srv
}

func TestGenerateReply_TimeoutAppendsSentinel(t *testing.T) {
	srv := hangingServer(t)
	client, err := llm.NewOpenAIClient(&llm.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1/",
		ChatModel:  "gemini-2.0-flash",
		Timeout:    shortTimeout,
		RetryDelay: time.Millisecond,
	}, zerolog.Nop())
	require.NoError(t, err)

	store := conversation.New("Afehyia pa!")
	user, err := models.NewTurn(models.RoleUser, "Ɛte sɛn?")
	require.NoError(t, err)
	store.Append(*user)

	start := time.Now()
	turn, warning := newOrchestrator(client).GenerateReply(context.Background(), store)

	assert.Less(t, time.Since(start), 2*time.Second)
	require.NotNil(t, warning)
	assert.Equal(t, models.KindGenerationFailed, warning.Kind)
	assert.True(t, turn.Failed)
	assert.Equal(t, persona.Default().Sentinel(), turn.Content)
	assert.Equal(t, 3, store.Len())
}

func TestAttach_SynthesisTimeout(t *testing.T) {
	srv := hangingServer(t)
	client, err := speech.NewGradioClient(speech.GradioConfig{
		BaseURL:     srv.URL,
		Timeout:     shortTimeout,
		DownloadDir: t.TempDir(),
	}, zerolog.Nop())
	require.NoError(t, err)

	resolver := NewSpeechResolver(client, DefaultVoice(), persona.Default(), zerolog.Nop())
	require.Nil(t, resolver.CheckAvailability(context.Background()))

	store, turn := storeWithReply("Me ho yɛ")
	start := time.Now()
	ref, warning := resolver.Attach(context.Background(), store, turn)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, ref)
	require.NotNil(t, warning)
	assert.Equal(t, models.KindSpeechSynthesisFailed, warning.Kind)

	stored, ok := store.Get(turn.TurnID)
	require.True(t, ok)
	assert.False(t, stored.HasAudio())
}
