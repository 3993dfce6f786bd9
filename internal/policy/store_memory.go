// internal/policy/store_memory.go
package policy

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu sync.RWMutex
	p  Policy
}

func NewMemoryStore(p Policy) *MemoryStore {
	return &MemoryStore{p: p}
}

func (s *MemoryStore) Load(_ context.Context) (Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p, nil
}

func (s *MemoryStore) Save(_ context.Context, p Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = p
	return nil
}
