package session

import (
	"sort"
	"sync"
)

// Manager is the process-wide session table. Runners mutate sessions;
// the manager only guards lookup.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func (m *Manager) put(s *Session) {
	m.mu.Lock()
	m.sessions[s.SessionID] = s
	m.mu.Unlock()
}

func (m *Manager) get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Get returns a value copy of one session's state.
func (m *Manager) Get(sessionID string) (Info, bool) {
	s, ok := m.get(sessionID)
	if !ok {
		return Info{}, false
	}
	return s.Info(), true
}

// List returns all sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Live returns sessions not yet terminal.
func (m *Manager) Live() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for _, s := range m.sessions {
		if !s.Terminal() {
			out = append(out, s)
		}
	}
	return out
}
