// ABOUTME: Message Store holding the ordered turns of one conversation session
// ABOUTME: Single source of truth for conversation state; all reads return copies
package conversation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/harper/obala/internal/models"
)

var (
	// ErrEmptyConversation is returned when Replace is given no turns
	ErrEmptyConversation = errors.New("conversation cannot be empty")
	// ErrUserHead is returned when Replace is given a sequence starting with a user turn
	ErrUserHead = errors.New("conversation must start with an assistant turn")
)

// Store is an in-memory ordered log of turns.
// INVARIANT: the log is never empty and its first turn is an assistant turn.
type Store struct {
	mu    sync.RWMutex
	turns []models.Turn
}

// New creates a store seeded with the assistant greeting
func New(greeting string) *Store {
	return &Store{turns: []models.Turn{models.NewAssistantTurn(greeting)}}
}

// Append adds a turn to the end of the conversation
func (s *Store) Append(turn models.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
}

// All returns a copy of the full ordered sequence
func (s *Store) All() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTurns(s.turns)
}

// Len returns the number of turns
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Last returns a copy of the last n turns (all turns if fewer exist)
func (s *Store) Last(n int) []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return []models.Turn{}
	}
	if n > len(s.turns) {
		n = len(s.turns)
	}
	return cloneTurns(s.turns[len(s.turns)-n:])
}

// Get returns a copy of the turn with the given ID
func (s *Store) Get(turnID string) (models.Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.turns {
		if t.TurnID == turnID {
			return t, true
		}
	}
	return models.Turn{}, false
}

// Replace atomically swaps the whole sequence. Only the compactor calls this.
func (s *Store) Replace(turns []models.Turn) error {
	if len(turns) == 0 {
		return ErrEmptyConversation
	}
	if !turns[0].IsAssistant() {
		return fmt.Errorf("replace with head %q: %w", turns[0].Role, ErrUserHead)
	}

	replacement := cloneTurns(turns)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = replacement
	return nil
}

// Update applies fn to the turn with the given ID under the store lock.
// Returns false if no such turn exists (for example it was compacted away).
func (s *Store) Update(turnID string, fn func(*models.Turn)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.turns {
		if s.turns[i].TurnID == turnID {
			fn(&s.turns[i])
			return true
		}
	}
	return false
}

// Reset discards the conversation and seeds a fresh greeting
func (s *Store) Reset(greeting string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = []models.Turn{models.NewAssistantTurn(greeting)}
}

func cloneTurns(turns []models.Turn) []models.Turn {
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out
}
