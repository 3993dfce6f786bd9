// internal/notifications/service.go
package notifications

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the notification sink. It is a pure
// consumer of lifecycle events: nothing downstream feeds back into the
// engine.
type Service interface {
	Notify(ctx context.Context, userID uuid.UUID, typ Type, message string) (*Notification, error)
	// List returns the user's notifications newest first, optionally
	// filtered by type.
	List(ctx context.Context, userID uuid.UUID, typ *Type) ([]*Notification, error)
}

// Store defines the persistence interface for notifications.
type Store interface {
	Append(ctx context.Context, n *Notification) error
	List(ctx context.Context, userID uuid.UUID, typ *Type) ([]*Notification, error)
}
