// internal/policy/implementation.go
package policy

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"libralend/internal/auth"
)

// service caches the policy row and invalidates the cache on every write,
// so reads stay cheap without hiding stale values across updates.
type service struct {
	store Store
	log   zerolog.Logger

	mu     sync.RWMutex
	cached *Policy
}

// NewService creates a new policy service instance.
func NewService(store Store, log zerolog.Logger) Service {
	return &service{store: store, log: log.With().Str("component", "policy").Logger()}
}

func (s *service) Get(ctx context.Context) (Policy, error) {
	s.mu.RLock()
	if s.cached != nil {
		p := *s.cached
		s.mu.RUnlock()
		return p, nil
	}
	s.mu.RUnlock()

	p, err := s.store.Load(ctx)
	if err != nil {
		return Policy{}, err
	}
	s.mu.Lock()
	s.cached = &p
	s.mu.Unlock()
	return p, nil
}

func (s *service) Set(ctx context.Context, actor auth.Actor, update Update) (Policy, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return Policy{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.Load(ctx)
	if err != nil {
		return Policy{}, err
	}
	next := update.Apply(current)
	if err := next.Validate(); err != nil {
		return Policy{}, err
	}
	next.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, next); err != nil {
		return Policy{}, err
	}

	// Invalidate so the next Get reloads committed values.
	s.cached = nil
	s.log.Info().
		Int("max_books_per_user", next.MaxBooksPerUser).
		Int("max_issue_days", next.MaxIssueDays).
		Float64("fine_per_day", next.FinePerDay).
		Msg("policy updated")
	return next, nil
}
