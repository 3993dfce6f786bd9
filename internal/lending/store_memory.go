// internal/lending/store_memory.go
package lending

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"libralend/internal/liberr"
)

// MemoryStore is an in-process Store with the same conditional-transition
// semantics as the Postgres implementation.
type MemoryStore struct {
	mu     sync.Mutex
	issues map[uuid.UUID]Issue
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{issues: make(map[uuid.UUID]Issue)}
}

func (s *MemoryStore) Insert(_ context.Context, issue *Issue, maxActive int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := 0
	for _, existing := range s.issues {
		if existing.UserID == issue.UserID && existing.Status.Active() {
			active++
		}
	}
	if active >= maxActive {
		return ErrBorrowLimit
	}
	s.issues[issue.ID] = *issue
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, liberr.New(liberr.KindNotFound, "issue %s not found", id)
	}
	return &issue, nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to Status) error {
	return s.mutate(id, from, func(issue *Issue) {
		issue.Status = to
	})
}

func (s *MemoryStore) MarkReturned(_ context.Context, id uuid.UUID, from Status, returnedAt time.Time) error {
	return s.mutate(id, from, func(issue *Issue) {
		issue.Status = StatusReturned
		at := returnedAt
		issue.ReturnedAt = &at
	})
}

func (s *MemoryStore) Renew(_ context.Context, id uuid.UUID, expectCount int, newDue time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return liberr.New(liberr.KindNotFound, "issue %s not found", id)
	}
	if issue.Status != StatusApproved || issue.RenewalCount != expectCount {
		return ErrStale
	}
	issue.DueDate = newDue
	issue.RenewalCount++
	s.issues[id] = issue
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*Issue, error) {
	return s.filter(func(issue Issue) bool { return issue.UserID == userID }), nil
}

func (s *MemoryStore) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]*Issue, error) {
	return s.filter(func(issue Issue) bool {
		return issue.UserID == userID && issue.Status.Active()
	}), nil
}

func (s *MemoryStore) ListOverdue(_ context.Context, asOf time.Time) ([]*Issue, error) {
	return s.filter(func(issue Issue) bool {
		return (issue.Status == StatusApproved || issue.Status == StatusReturnRequested) &&
			issue.DueDate.Before(asOf)
	}), nil
}

func (s *MemoryStore) mutate(id uuid.UUID, from Status, fn func(*Issue)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return liberr.New(liberr.KindNotFound, "issue %s not found", id)
	}
	if issue.Status != from {
		return ErrStale
	}
	fn(&issue)
	s.issues[id] = issue
	return nil
}

func (s *MemoryStore) filter(keep func(Issue) bool) []*Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Issue
	for _, issue := range s.issues {
		if keep(issue) {
			v := issue
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueDate.Before(out[j].IssueDate) })
	return out
}
