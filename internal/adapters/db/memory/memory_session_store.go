package memory

import (
	"context"
	"sync"

	"github.com/spellbook-app/session-gateway/internal/domain/session/model"
)

// MemorySessionStore is the non-durable TokenStore used in tests and
// when the gateway runs without Redis. Sessions do not survive a
// restart.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]model.Session),
	}
}

func (m *MemorySessionStore) Set(_ context.Context, sid string, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sid] = s
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, sid string) (model.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sid]
	return s, ok, nil
}

func (m *MemorySessionStore) Clear(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sid)
	return nil
}
