// ABOUTME: Scripted collaborator doubles shared by the core tests
// ABOUTME: fakeGenerator replays canned replies; fakeSynthesizer returns a fixed payload
package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/harper/obala/internal/conversation"
	"github.com/harper/obala/internal/llm"
	"github.com/harper/obala/internal/models"
	"github.com/harper/obala/internal/speech"
)

var errBoom = errors.New("HTTP 500: internal error")

type reply struct {
	text string
	err  error
}

type fakeGenerator struct {
	mu       sync.Mutex
	replies  []reply
	requests []llm.Request
}

func newFakeGenerator(replies ...reply) *fakeGenerator {
	return &fakeGenerator{replies: replies}
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if len(f.replies) == 0 {
		return llm.Response{}, errors.New("no scripted reply")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	if r.err != nil {
		return llm.Response{}, r.err
	}
	return llm.Response{Candidates: []llm.Candidate{{Parts: []string{r.text}}}}, nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeSynthesizer struct {
	payload string
	err     error
	pingErr error
	calls   int
	last    speech.Request
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, req speech.Request) (json.RawMessage, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.payload), nil
}

func (f *fakeSynthesizer) Ping(ctx context.Context) error {
	return f.pingErr
}

// seedStore builds a store of n turns: the greeting followed by alternating
// user and assistant turns.
func seedStore(n int) *conversation.Store {
	store := conversation.New("Afehyia pa!")
	for i := 1; i < n; i++ {
		if i%2 == 1 {
			t, _ := models.NewTurn(models.RoleUser, "user message")
			store.Append(*t)
		} else {
			store.Append(models.NewAssistantTurn("assistant reply"))
		}
	}
	return store
}
