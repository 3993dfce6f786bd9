// internal/users/store_memory.go
package users

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"libralend/internal/liberr"
)

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[uuid.UUID]User)}
}

func (s *MemoryStore) Insert(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, liberr.New(liberr.KindNotFound, "user %s not found", id)
	}
	return &u, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		v := u
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, id uuid.UUID, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return liberr.New(liberr.KindNotFound, "user %s not found", id)
	}
	u.Role = role
	s.users[id] = u
	return nil
}
