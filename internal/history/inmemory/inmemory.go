package inmemory

import (
	"context"
	"sync"

	"github.com/ooocheckitout/llm-knowledge-base/internal/history"
)

// Store keeps session histories in process memory. History lives for the
// lifetime of the process; a restart loses it, the vector data survives
// independently.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]history.Turn
}

func NewStore() *Store {
	return &Store{sessions: make(map[string][]history.Turn)}
}

func (s *Store) Recent(_ context.Context, sessionID string, n int) ([]history.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]history.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *Store) Append(_ context.Context, sessionID string, turns ...history.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turns...)
	return nil
}

func (s *Store) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
