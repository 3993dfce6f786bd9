// internal/users/implementation.go
package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"libralend/internal/liberr"
)

// service implements the Service interface.
type service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates a new user directory service instance.
func NewService(store Store, log zerolog.Logger) Service {
	return &service{store: store, log: log.With().Str("component", "users").Logger()}
}

func (s *service) Register(ctx context.Context, fullName, email string, role Role) (*User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, liberr.New(liberr.KindInvalidInput, "full name and email are required")
	}
	if _, ok := ParseRole(string(role)); !ok {
		return nil, liberr.New(liberr.KindInvalidInput, "unknown role %q", role)
	}

	u := &User{
		ID:        uuid.New(),
		FullName:  fullName,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).Msg("user registered")
	return u, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.Get(ctx, id)
}

func (s *service) List(ctx context.Context) ([]*User, error) {
	return s.store.List(ctx)
}

func (s *service) UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	if _, ok := ParseRole(string(role)); !ok {
		return nil, liberr.New(liberr.KindInvalidInput, "unknown role %q", role)
	}
	if err := s.store.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", id.String()).Str("role", string(role)).Msg("role updated")
	return s.store.Get(ctx, id)
}
