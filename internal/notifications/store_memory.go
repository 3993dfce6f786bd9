// internal/notifications/store_memory.go
package notifications

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	items []Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *n)
	return nil
}

func (s *MemoryStore) List(_ context.Context, userID uuid.UUID, typ *Type) ([]*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Notification
	for _, n := range s.items {
		if n.UserID != userID {
			continue
		}
		if typ != nil && n.Type != *typ {
			continue
		}
		v := n
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
