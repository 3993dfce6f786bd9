// internal/notifications/implementation.go
package notifications

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

// NewService creates a new notification sink instance.
func NewService(store Store, log zerolog.Logger) Service {
	return &service{store: store, log: log.With().Str("component", "notifications").Logger()}
}

func (s *service) Notify(ctx context.Context, userID uuid.UUID, typ Type, message string) (*Notification, error) {
	if strings.TrimSpace(message) == "" {
		return nil, liberr.New(liberr.KindInvalidInput, "notification message is empty")
	}
	if _, ok := ParseType(string(typ)); !ok {
		return nil, liberr.New(liberr.KindInvalidInput, "unknown notification type %q", typ)
	}

	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Append(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, typ *Type) ([]*Notification, error) {
	if typ != nil {
		if _, ok := ParseType(string(*typ)); !ok {
			return nil, liberr.New(liberr.KindInvalidInput, "unknown notification type %q", *typ)
		}
	}
	return s.store.List(ctx, userID, typ)
}

// Sink adapts the service to the fire-and-forget notifier interfaces the
// lending and fine packages consume; append failures are logged, never
// propagated into the triggering operation.
type Sink struct {
	svc Service
	log zerolog.Logger
}

func NewSink(svc Service, log zerolog.Logger) *Sink {
	return &Sink{svc: svc, log: log.With().Str("component", "notification_sink").Logger()}
}

func (s *Sink) NotifySystem(ctx context.Context, userID uuid.UUID, message string) {
	s.send(ctx, userID, TypeSystem, message)
}

func (s *Sink) NotifyReminder(ctx context.Context, userID uuid.UUID, message string) {
	s.send(ctx, userID, TypeReminder, message)
}

func (s *Sink) NotifyFine(ctx context.Context, userID uuid.UUID, message string) {
	s.send(ctx, userID, TypeFineNotice, message)
}

func (s *Sink) send(ctx context.Context, userID uuid.UUID, typ Type, message string) {
	if _, err := s.svc.Notify(ctx, userID, typ, message); err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Str("type", string(typ)).Msg("notification append failed")
	}
}
