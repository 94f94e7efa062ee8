package session

import (
	"context"
	"sort"
	"sync"

	agent "github.com/Protocol-Lattice/research-agent"
)

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]agent.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]agent.Message)}
}

// History returns a copy so callers cannot mutate stored turns.
func (s *MemoryStore) History(_ context.Context, id string) ([]agent.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[id]
	out := make([]agent.Message, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, id string, msg agent.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = append(s.sessions[id], msg)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// ActiveIDs returns the ids with at least one turn, sorted.
func (s *MemoryStore) ActiveIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
