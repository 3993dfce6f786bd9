// internal/fines/implementation.go
package fines

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"libralend/internal/auth"
	"libralend/internal/lending"
	"libralend/internal/liberr"
)

// service implements the Service interface.
type service struct {
	store    Store
	issues   IssueDirectory
	ledger   CopyRemover
	policies PolicyProvider
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures optional service behavior.
type Option func(*service)

// WithClock replaces the wall clock, used by tests to move time.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates a new fine engine instance.
func NewService(store Store, issues IssueDirectory, ledger CopyRemover, policies PolicyProvider, notifier Notifier, log zerolog.Logger, opts ...Option) Service {
	s := &service{
		store:    store,
		issues:   issues,
		ledger:   ledger,
		policies: policies,
		notifier: notifier,
		log:      log.With().Str("component", "fines").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) EvaluateLateFine(ctx context.Context, issue lending.Issue) error {
	pol, err := s.policies.Get(ctx)
	if err != nil {
		return liberr.Wrap(liberr.KindInternal, err, "policy unavailable")
	}

	ref := s.now().UTC()
	if issue.ReturnedAt != nil {
		ref = *issue.ReturnedAt
	}
	days := overdueDays(issue.DueDate, ref, pol.GracePeriodDays)
	if days == 0 || pol.FinePerDay == 0 {
		return nil
	}

	fine := &Fine{
		ID:        uuid.New(),
		IssueID:   issue.ID,
		UserID:    issue.UserID,
		Type:      TypeLateReturn,
		Amount:    float64(days) * pol.FinePerDay,
		CreatedAt: s.now().UTC(),
	}
	created, err := s.store.CreateLateFine(ctx, fine)
	if err != nil {
		return err
	}
	if !created {
		// An unpaid late fine already covers this issue.
		return nil
	}

	s.notifier.NotifyFine(ctx, issue.UserID,
		fmt.Sprintf("A late-return fine of %.2f was assessed (%d days overdue).", fine.Amount, days))
	s.log.Info().
		Str("fine_id", fine.ID.String()).
		Str("issue_id", issue.ID.String()).
		Float64("amount", fine.Amount).
		Int("overdue_days", days).
		Msg("late fine created")
	return nil
}

func (s *service) AssessLostBook(ctx context.Context, actor auth.Actor, issueID uuid.UUID, bookPrice float64) (*Fine, error) {
	if err := auth.RequireLibrarian(actor); err != nil {
		return nil, err
	}
	if bookPrice <= 0 {
		return nil, liberr.New(liberr.KindInvalidInput, "book_price must be > 0, got %g", bookPrice)
	}

	pol, err := s.policies.Get(ctx)
	if err != nil {
		return nil, liberr.Wrap(liberr.KindInternal, err, "policy unavailable")
	}

	now := s.now().UTC()
	issue, err := s.issues.CloseLost(ctx, issueID, now)
	if err != nil {
		return nil, err
	}
	// The copy never comes back: it leaves the holding entirely rather
	// than returning to the shelf.
	if err := s.ledger.RemoveLostCopy(ctx, issue.BookID); err != nil {
		return nil, err
	}

	fine := &Fine{
		ID:        uuid.New(),
		IssueID:   issue.ID,
		UserID:    issue.UserID,
		Type:      TypeLostBook,
		Amount:    bookPrice * pol.LostBookPenaltyMultiplier,
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, fine); err != nil {
		return nil, err
	}

	s.notifier.NotifyFine(ctx, issue.UserID,
		fmt.Sprintf("A lost-book fine of %.2f was assessed.", fine.Amount))
	s.log.Info().
		Str("fine_id", fine.ID.String()).
		Str("issue_id", issue.ID.String()).
		Float64("amount", fine.Amount).
		Msg("lost-book fine created")
	return fine, nil
}

func (s *service) MarkPaid(ctx context.Context, actor auth.Actor, fineID uuid.UUID) (*Fine, error) {
	if err := auth.RequireLibrarian(actor); err != nil {
		return nil, err
	}

	paid, err := s.store.MarkPaid(ctx, fineID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if paid {
		s.log.Info().Str("fine_id", fineID.String()).Msg("fine collected")
	}
	return s.store.Get(ctx, fineID)
}

func (s *service) ListUserFines(ctx context.Context, actor auth.Actor, userID uuid.UUID, unpaidOnly bool) ([]*Fine, error) {
	if actor.UserID != userID && !actor.IsLibrarian() {
		return nil, liberr.New(liberr.KindUnauthorized, "cannot read another member's fines")
	}
	return s.store.ListByUser(ctx, userID, unpaidOnly)
}

func (s *service) ListUnpaid(ctx context.Context, actor auth.Actor) ([]*Fine, error) {
	if err := auth.RequireLibrarian(actor); err != nil {
		return nil, err
	}
	return s.store.ListUnpaid(ctx)
}

func (s *service) SweepOverdue(ctx context.Context) error {
	asOf := s.now().UTC()
	overdue, err := s.issues.ListOverdue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("list overdue issues: %w", err)
	}

	var failed int
	for _, issue := range overdue {
		if err := s.EvaluateLateFine(ctx, *issue); err != nil {
			failed++
			s.log.Error().Err(err).Str("issue_id", issue.ID.String()).Msg("sweep evaluation failed")
			continue
		}
		s.notifier.NotifyReminder(ctx, issue.UserID,
			fmt.Sprintf("Your book was due on %s. Please return it.", issue.DueDate.Format("2006-01-02")))
	}

	s.log.Info().Int("overdue", len(overdue)).Int("failed", failed).Msg("overdue sweep completed")
	if failed > 0 {
		return fmt.Errorf("sweep: %d of %d evaluations failed", failed, len(overdue))
	}
	return nil
}
