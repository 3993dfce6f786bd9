// internal/users/service.go
package users

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the user directory.
type Service interface {
	Register(ctx context.Context, fullName, email string, role Role) (*User, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*User, error)
}

// Store defines the persistence interface for users.
type Store interface {
	Insert(ctx context.Context, u *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) error
}
