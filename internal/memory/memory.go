// Package memory keeps a bounded per-session conversation transcript used
// to give the question and reasoning prompts recent context.
package memory

import (
	"sync"
)

const defaultLimit = 20

type exchange struct {
	input  string
	output string
}

// Store is safe for concurrent use across sessions.
type Store struct {
	mu    sync.Mutex
	limit int
	bySID map[string][]exchange
}

func NewStore() *Store {
	return &Store{
		limit: defaultLimit,
		bySID: make(map[string][]exchange),
	}
}

// SaveContext records one input/output pair for a session, evicting the
// oldest pair past the limit.
func (s *Store) SaveContext(sessionID, input, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.bySID[sessionID], exchange{input: input, output: output})
	if len(history) > s.limit {
		history = history[len(history)-s.limit:]
	}
	s.bySID[sessionID] = history
}

// Recent renders the last n exchanges, oldest first, as prompt lines.
func (s *Store) Recent(sessionID string, n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.bySID[sessionID]
	if len(history) > n {
		history = history[len(history)-n:]
	}
	lines := make([]string, 0, len(history))
	for _, e := range history {
		lines = append(lines, e.input+" -> "+e.output)
	}
	return lines
}

// Clear drops the transcript for one session.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bySID, sessionID)
}
