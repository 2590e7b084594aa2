// Package session serializes turns per session key. The reconciler assumes
// at most one in-flight turn per key with the rest queued; that guarantee is
// provided here at the front door.
package session

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Manager hands out per-key locks so at most one turn is in flight for a
// session at a time. Different keys proceed fully independently. Lock entries
// are created lazily and dropped once the last holder releases, so idle
// sessions cost nothing.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// NewManager creates a session manager.
func NewManager() *Manager {
	return &Manager{locks: make(map[string]*entry)}
}

// Acquire blocks until the session key's lock is free and returns a release
// function. Release must be called exactly once.
func (m *Manager) Acquire(sessionKey string) (release func()) {
	m.mu.Lock()
	e, ok := m.locks[sessionKey]
	if !ok {
		e = &entry{}
		m.locks[sessionKey] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, sessionKey)
		}
		m.mu.Unlock()
	}
}

// ActiveKeys returns how many session keys currently hold or wait on a lock.
func (m *Manager) ActiveKeys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
