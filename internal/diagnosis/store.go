package diagnosis

import (
	"sync"
)

// SessionStore keeps live sessions in memory, one per identifier, and
// enforces the single-writer rule with a per-session mutex. Different
// sessions proceed fully in parallel.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sessionEntry)}
}

// Acquire returns the session for id, creating it on first use, with its
// writer lock held. The returned release function must be called when the
// Handle pass is done.
func (st *SessionStore) Acquire(id string) (*Session, func()) {
	st.mu.Lock()
	entry, ok := st.sessions[id]
	if !ok {
		entry = &sessionEntry{session: NewSession(id)}
		st.sessions[id] = entry
	}
	st.mu.Unlock()

	entry.mu.Lock()
	return entry.session, entry.mu.Unlock
}

// Len reports the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
