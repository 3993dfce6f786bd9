// internal/policy/service.go
package policy

import (
	"context"

	"libralend/internal/auth"
)

// Service defines the interface for the policy store.
type Service interface {
	// Get returns the last committed policy. After the initial seed it
	// never fails with anything a caller can act on; load failures are
	// internal errors and callers must treat them as fail-safe rejections.
	Get(ctx context.Context) (Policy, error)

	// Set applies a partial update atomically. Admin-only.
	Set(ctx context.Context, actor auth.Actor, update Update) (Policy, error)
}

// Store defines the persistence interface for the singleton policy row.
type Store interface {
	Load(ctx context.Context) (Policy, error)
	Save(ctx context.Context, p Policy) error
}
