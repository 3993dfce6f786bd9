// internal/fines/store_memory.go
package fines

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"libralend/internal/liberr"
)

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	fines map[uuid.UUID]Fine
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fines: make(map[uuid.UUID]Fine)}
}

func (s *MemoryStore) CreateLateFine(_ context.Context, f *Fine) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.fines {
		if existing.IssueID == f.IssueID && existing.Type == TypeLateReturn && !existing.IsPaid {
			return false, nil
		}
	}
	s.fines[f.ID] = *f
	return true, nil
}

func (s *MemoryStore) Create(_ context.Context, f *Fine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fines[f.ID] = *f
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Fine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fines[id]
	if !ok {
		return nil, liberr.New(liberr.KindNotFound, "fine %s not found", id)
	}
	return &f, nil
}

func (s *MemoryStore) MarkPaid(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fines[id]
	if !ok {
		return false, liberr.New(liberr.KindNotFound, "fine %s not found", id)
	}
	if f.IsPaid {
		return false, nil
	}
	f.IsPaid = true
	paidAt := at
	f.PaidAt = &paidAt
	s.fines[id] = f
	return true, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID, unpaidOnly bool) ([]*Fine, error) {
	return s.filter(func(f Fine) bool {
		return f.UserID == userID && (!unpaidOnly || !f.IsPaid)
	}), nil
}

func (s *MemoryStore) ListUnpaid(_ context.Context) ([]*Fine, error) {
	return s.filter(func(f Fine) bool { return !f.IsPaid }), nil
}

func (s *MemoryStore) filter(keep func(Fine) bool) []*Fine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Fine
	for _, f := range s.fines {
		if keep(f) {
			v := f
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
