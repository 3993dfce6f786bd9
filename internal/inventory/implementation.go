// internal/inventory/implementation.go
package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"libralend/internal/liberr"
)

// ErrGuardFailed is reported by stores when a conditional ledger update
// finds the guard false (no available copy, shelf already full, nothing
// outstanding). The service layer translates it per operation.
var ErrGuardFailed = errors.New("ledger guard failed")

// service implements the Service interface.
type service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates a new inventory service instance.
func NewService(store Store, log zerolog.Logger) Service {
	return &service{store: store, log: log.With().Str("component", "inventory").Logger()}
}

func (s *service) AddBook(ctx context.Context, isbn, title, author string, totalCopies int) (*Book, error) {
	isbn = strings.TrimSpace(isbn)
	title = strings.TrimSpace(title)
	if isbn == "" || title == "" {
		return nil, liberr.New(liberr.KindInvalidInput, "isbn and title are required")
	}
	if totalCopies < 0 {
		return nil, liberr.New(liberr.KindInvalidInput, "total_copies must be >= 0, got %d", totalCopies)
	}

	now := time.Now().UTC()
	b := &Book{
		ID:              uuid.New(),
		ISBN:            isbn,
		Title:           title,
		Author:          strings.TrimSpace(author),
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Insert(ctx, b); err != nil {
		return nil, err
	}
	s.log.Info().Str("book_id", b.ID.String()).Str("title", b.Title).Int("copies", totalCopies).Msg("book added")
	return b, nil
}

func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.store.Get(ctx, id)
}

func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, update BookUpdate) (*Book, error) {
	if err := s.store.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *service) AdjustTotalCopies(ctx context.Context, id uuid.UUID, delta int) (*Book, error) {
	if delta == 0 {
		return s.store.Get(ctx, id)
	}
	if err := s.store.AdjustTotal(ctx, id, delta); err != nil {
		if errors.Is(err, ErrGuardFailed) {
			return nil, liberr.New(liberr.KindInvalidInput,
				"cannot shrink book %s by %d copies: outstanding issues hold them", id, -delta)
		}
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *service) RemoveBook(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("book_id", id.String()).Msg("book removed")
	return nil
}

func (s *service) ListBooks(ctx context.Context) ([]*Book, error) {
	return s.store.List(ctx)
}

func (s *service) Search(ctx context.Context, query string) ([]*Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, liberr.New(liberr.KindInvalidInput, "search query is required")
	}
	return s.store.Search(ctx, query)
}

func (s *service) ReserveCopy(ctx context.Context, id uuid.UUID) error {
	if err := s.store.ReserveCopy(ctx, id); err != nil {
		if errors.Is(err, ErrGuardFailed) {
			return liberr.New(liberr.KindOutOfStock, "no available copies of book %s", id)
		}
		return err
	}
	return nil
}

func (s *service) ReleaseCopy(ctx context.Context, id uuid.UUID) error {
	if err := s.store.ReleaseCopy(ctx, id); err != nil {
		if errors.Is(err, ErrGuardFailed) {
			// More releases than reservations means the ledger is corrupt.
			// Surface loudly instead of clamping.
			s.log.Error().Str("book_id", id.String()).Msg("release would exceed total copies")
			return liberr.Wrap(liberr.KindInternal, err, "release copy of book %s", id)
		}
		return err
	}
	return nil
}

func (s *service) RemoveLostCopy(ctx context.Context, id uuid.UUID) error {
	if err := s.store.RemoveLostCopy(ctx, id); err != nil {
		if errors.Is(err, ErrGuardFailed) {
			s.log.Error().Str("book_id", id.String()).Msg("lost-copy removal with no outstanding copy")
			return liberr.Wrap(liberr.KindInternal, err, "remove lost copy of book %s", id)
		}
		return err
	}
	s.log.Info().Str("book_id", id.String()).Msg("lost copy removed from holding")
	return nil
}
