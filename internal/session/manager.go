// ABOUTME: Manager creates, looks up and closes sessions by ID
// ABOUTME: Sessions share only stateless collaborators; no conversation state crosses sessions
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/harper/obala/internal/models"
)

// Manager tracks live sessions
type Manager struct {
	deps     Deps
	startup  []models.Warning
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager. startup holds warnings raised while the
// collaborators were initialized; every new session reports them.
func NewManager(deps Deps, startup []models.Warning) *Manager {
	return &Manager{
		deps:     deps,
		startup:  startup,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session seeded with the greeting
func (m *Manager) Create() *Session {
	s := newSession(uuid.New().String(), m.deps, m.startup)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.deps.Logger.Debug().Str("session", s.ID()).Msg("session created")
	return s
}

// Get looks up a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close archives and forgets a session
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	m.deps.Logger.Debug().Str("session", id).Msg("session closed")
	return nil
}

// CloseAll closes every live session
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.Close(id)
	}
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
