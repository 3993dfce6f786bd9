// internal/inventory/store_memory.go
package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"libralend/internal/liberr"
)

// MemoryStore is an in-process Store with the same conditional-update
// semantics as the Postgres implementation; a single mutex stands in for
// row-level atomicity.
type MemoryStore struct {
	mu    sync.Mutex
	books map[uuid.UUID]Book
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{books: make(map[uuid.UUID]Book)}
}

func (s *MemoryStore) Insert(_ context.Context, b *Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[b.ID] = *b
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, liberr.New(liberr.KindNotFound, "book %s not found", id)
	}
	return &b, nil
}

func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, update BookUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return liberr.New(liberr.KindNotFound, "book %s not found", id)
	}
	if update.ISBN != nil {
		b.ISBN = *update.ISBN
	}
	if update.Title != nil {
		b.Title = *update.Title
	}
	if update.Author != nil {
		b.Author = *update.Author
	}
	b.UpdatedAt = time.Now().UTC()
	s.books[id] = b
	return nil
}

func (s *MemoryStore) AdjustTotal(_ context.Context, id uuid.UUID, delta int) error {
	return s.mutate(id, func(b *Book) bool {
		if b.AvailableCopies+delta < 0 || b.TotalCopies+delta < 0 {
			return false
		}
		b.TotalCopies += delta
		b.AvailableCopies += delta
		return true
	})
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return liberr.New(liberr.KindNotFound, "book %s not found", id)
	}
	delete(s.books, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Book, 0, len(s.books))
	for _, b := range s.books {
		v := b
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *MemoryStore) Search(_ context.Context, query string) ([]*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	var out []*Book
	for _, b := range s.books {
		if strings.HasPrefix(strings.ToLower(b.Title), q) ||
			strings.HasPrefix(strings.ToLower(b.Author), q) ||
			b.ISBN == query {
			v := b
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *MemoryStore) ReserveCopy(_ context.Context, id uuid.UUID) error {
	return s.mutate(id, func(b *Book) bool {
		if b.AvailableCopies <= 0 {
			return false
		}
		b.AvailableCopies--
		return true
	})
}

func (s *MemoryStore) ReleaseCopy(_ context.Context, id uuid.UUID) error {
	return s.mutate(id, func(b *Book) bool {
		if b.AvailableCopies >= b.TotalCopies {
			return false
		}
		b.AvailableCopies++
		return true
	})
}

func (s *MemoryStore) RemoveLostCopy(_ context.Context, id uuid.UUID) error {
	return s.mutate(id, func(b *Book) bool {
		if b.TotalCopies <= b.AvailableCopies {
			return false
		}
		b.TotalCopies--
		return true
	})
}

// mutate applies fn under the lock; fn returns false when its guard fails.
func (s *MemoryStore) mutate(id uuid.UUID, fn func(*Book) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return liberr.New(liberr.KindNotFound, "book %s not found", id)
	}
	if !fn(&b) {
		return ErrGuardFailed
	}
	b.UpdatedAt = time.Now().UTC()
	s.books[id] = b
	return nil
}
