// internal/lending/implementation.go
package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"libralend/internal/auth"
	"libralend/internal/liberr"
	"libralend/internal/policy"
	"libralend/internal/users"
)

// ErrStale is reported by stores when a conditional transition found the
// issue no longer in the expected status; the losing caller of a race
// observes the post-transition state.
var ErrStale = errors.New("issue changed concurrently")

// ErrBorrowLimit is reported by stores when the atomic count-and-insert
// found the user at their active-issue limit.
var ErrBorrowLimit = errors.New("active issue limit reached")

// PolicyProvider is the read side of the policy store.
type PolicyProvider interface {
	Get(ctx context.Context) (policy.Policy, error)
}

// service implements the Service interface.
type service struct {
	store    Store
	ledger   Ledger
	users    UserDirectory
	policies PolicyProvider
	notifier Notifier
	fines    FineEvaluator

	limiter *rate.Limiter
	tracer  trace.Tracer
	log     zerolog.Logger
	now     func() time.Time
}

// Option configures optional service behavior.
type Option func(*service)

// WithClock replaces the wall clock, used by tests to move time.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithRequestLimit caps borrow requests per second across all members.
func WithRequestLimit(l *rate.Limiter) Option {
	return func(s *service) { s.limiter = l }
}

// NewService creates a new lending service instance.
func NewService(store Store, ledger Ledger, dir UserDirectory, policies PolicyProvider, notifier Notifier, log zerolog.Logger, opts ...Option) Service {
	s := &service{
		store:    store,
		ledger:   ledger,
		users:    dir,
		policies: policies,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 50),
		tracer:   otel.Tracer("libralend/lending"),
		log:      log.With().Str("component", "lending").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) AttachFineEvaluator(e FineEvaluator) { s.fines = e }

// RequestIssue reserves a copy and creates the PENDING issue. The copy is
// taken at request time, not approval time, so a limited title cannot be
// promised twice while a librarian decision is pending; a rejected request
// puts it back.
func (s *service) RequestIssue(ctx context.Context, actor auth.Actor, userID, bookID uuid.UUID) (*Issue, error) {
	ctx, span := s.tracer.Start(ctx, "lending.request_issue",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	if !s.limiter.Allow() {
		return nil, liberr.New(liberr.KindRateLimited, "too many borrow requests, retry shortly")
	}
	if actor.UserID != userID && !actor.IsLibrarian() {
		return nil, liberr.New(liberr.KindUnauthorized, "members may only borrow for themselves")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != users.RoleMember {
		return nil, liberr.New(liberr.KindInvalidInput, "only members can borrow books")
	}

	pol, err := s.policies.Get(ctx)
	if err != nil {
		// Fail safe: without a policy no mutating operation proceeds.
		return nil, liberr.Wrap(liberr.KindInternal, err, "policy unavailable")
	}

	if err := s.ledger.ReserveCopy(ctx, bookID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	issue := &Issue{
		ID:        uuid.New(),
		BookID:    bookID,
		UserID:    userID,
		Status:    StatusPending,
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, pol.MaxIssueDays),
	}
	if err := s.store.Insert(ctx, issue, pol.MaxBooksPerUser); err != nil {
		// Compensate the reservation; the insert never happened.
		if relErr := s.ledger.ReleaseCopy(ctx, bookID); relErr != nil {
			s.log.Error().Err(relErr).Str("book_id", bookID.String()).Msg("failed to compensate reservation")
		}
		if errors.Is(err, ErrBorrowLimit) {
			return nil, liberr.New(liberr.KindBorrowLimitExceeded,
				"user %s already holds %d issues (limit %d)", userID, pol.MaxBooksPerUser, pol.MaxBooksPerUser)
		}
		return nil, err
	}

	s.log.Info().
		Str("issue_id", issue.ID.String()).
		Str("user_id", userID.String()).
		Str("book_id", bookID.String()).
		Time("due_date", issue.DueDate).
		Msg("issue requested")
	return issue, nil
}

func (s *service) Approve(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error) {
	if err := auth.RequireLibrarian(actor); err != nil {
		return nil, err
	}
	issue, err := s.transition(ctx, issueID, ActionApprove, nil)
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyReminder(ctx, issue.UserID,
		fmt.Sprintf("Your borrow request was approved. Due on %s.", issue.DueDate.Format("2006-01-02")))
	return issue, nil
}

func (s *service) Reject(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error) {
	if err := auth.RequireLibrarian(actor); err != nil {
		return nil, err
	}
	issue, err := s.store.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if _, err := nextStatus(issue.Status, ActionReject); err != nil {
		return nil, err
	}

	// Release before the transition, mirroring RequestIssue: a failed
	// release leaves the issue PENDING and retryable, a failed transition
	// re-reserves the copy.
	if err := s.ledger.ReleaseCopy(ctx, issue.BookID); err != nil {
		return nil, err
	}
	rejected, err := s.transition(ctx, issueID, ActionReject, nil)
	if err != nil {
		if resErr := s.ledger.ReserveCopy(ctx, issue.BookID); resErr != nil {
			s.log.Error().Err(resErr).Str("book_id", issue.BookID.String()).Msg("failed to compensate release")
		}
		return nil, err
	}
	s.notifier.NotifySystem(ctx, rejected.UserID, "Your borrow request was rejected.")
	return rejected, nil
}

func (s *service) RequestReturn(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error) {
	return s.ownerTransition(ctx, actor, issueID, ActionRequestReturn)
}

func (s *service) CancelReturn(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error) {
	return s.ownerTransition(ctx, actor, issueID, ActionCancelReturn)
}

func (s *service) ConfirmReturn(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error) {
	if err := auth.RequireLibrarian(actor); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "lending.confirm_return",
		trace.WithAttributes(attribute.String("issue.id", issueID.String())))
	defer span.End()

	issue, err := s.store.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if _, err := nextStatus(issue.Status, ActionConfirmReturn); err != nil {
		return nil, err
	}

	// Release before the transition, mirroring RequestIssue: a failed
	// release leaves the issue confirmable and retryable, a failed
	// transition re-reserves the copy.
	if err := s.ledger.ReleaseCopy(ctx, issue.BookID); err != nil {
		return nil, err
	}

	returnedAt := s.now().UTC()
	returned, err := s.transition(ctx, issueID, ActionConfirmReturn, func(cur *Issue) error {
		return s.store.MarkReturned(ctx, issueID, cur.Status, returnedAt)
	})
	if err != nil {
		if resErr := s.ledger.ReserveCopy(ctx, issue.BookID); resErr != nil {
			s.log.Error().Err(resErr).Str("book_id", issue.BookID.String()).Msg("failed to compensate release")
		}
		return nil, err
	}
	returned.ReturnedAt = &returnedAt

	// Fine evaluation is fire-and-report: the return stands even when the
	// fine write fails, and the periodic sweep re-evaluates idempotently.
	if s.fines != nil {
		if err := s.fines.EvaluateLateFine(ctx, *returned); err != nil {
			s.log.Error().Err(err).Str("issue_id", issueID.String()).Msg("late fine evaluation failed")
		}
	}
	s.notifier.NotifySystem(ctx, returned.UserID, "Your return was recorded. Thank you.")
	s.log.Info().Str("issue_id", issueID.String()).Msg("return confirmed")
	return returned, nil
}

func (s *service) Renew(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error) {
	issue, err := s.store.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != issue.UserID {
		return nil, liberr.New(liberr.KindUnauthorized, "only the issue owner may renew")
	}
	if _, err := nextStatus(issue.Status, ActionRenew); err != nil {
		return nil, err
	}

	pol, err := s.policies.Get(ctx)
	if err != nil {
		return nil, liberr.Wrap(liberr.KindInternal, err, "policy unavailable")
	}
	if issue.RenewalCount >= pol.MaxRenewals {
		return nil, liberr.New(liberr.KindRenewalLimitExceeded,
			"issue %s already renewed %d times (limit %d)", issueID, issue.RenewalCount, pol.MaxRenewals)
	}
	now := s.now().UTC()
	if issue.DueDate.Before(now) {
		return nil, liberr.New(liberr.KindAlreadyOverdue,
			"issue %s is overdue since %s and can no longer be renewed", issueID, issue.DueDate.Format("2006-01-02"))
	}

	newDue := issue.DueDate.AddDate(0, 0, pol.MaxIssueDays)
	if err := s.store.Renew(ctx, issueID, issue.RenewalCount, newDue); err != nil {
		if errors.Is(err, ErrStale) {
			return nil, s.staleError(ctx, issueID, ActionRenew)
		}
		return nil, err
	}

	issue.DueDate = newDue
	issue.RenewalCount++
	s.log.Info().Str("issue_id", issueID.String()).Time("due_date", newDue).Msg("issue renewed")
	return issue, nil
}

func (s *service) GetIssue(ctx context.Context, issueID uuid.UUID) (*Issue, error) {
	return s.store.Get(ctx, issueID)
}

func (s *service) Actions(ctx context.Context, issueID uuid.UUID) ([]Action, error) {
	issue, err := s.store.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	return LegalActions(issue.Status), nil
}

func (s *service) ListUserIssues(ctx context.Context, actor auth.Actor, userID uuid.UUID) ([]*Issue, error) {
	if actor.UserID != userID && !actor.IsLibrarian() {
		return nil, liberr.New(liberr.KindUnauthorized, "cannot read another member's issues")
	}
	return s.store.ListByUser(ctx, userID)
}

func (s *service) ListUserActive(ctx context.Context, actor auth.Actor, userID uuid.UUID) ([]*Issue, error) {
	if actor.UserID != userID && !actor.IsLibrarian() {
		return nil, liberr.New(liberr.KindUnauthorized, "cannot read another member's issues")
	}
	return s.store.ListActiveByUser(ctx, userID)
}

func (s *service) ListOverdue(ctx context.Context, asOf time.Time) ([]*Issue, error) {
	return s.store.ListOverdue(ctx, asOf)
}

func (s *service) CloseLost(ctx context.Context, issueID uuid.UUID, at time.Time) (*Issue, error) {
	issue, err := s.transition(ctx, issueID, ActionDeclareLost, func(cur *Issue) error {
		return s.store.MarkReturned(ctx, issueID, cur.Status, at)
	})
	if err != nil {
		return nil, err
	}
	issue.ReturnedAt = &at
	return issue, nil
}

// ownerTransition applies a member-only action restricted to the issue
// owner.
func (s *service) ownerTransition(ctx context.Context, actor auth.Actor, issueID uuid.UUID, action Action) (*Issue, error) {
	issue, err := s.store.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != issue.UserID {
		return nil, liberr.New(liberr.KindUnauthorized, "only the issue owner may %s", action)
	}
	return s.transition(ctx, issueID, action, nil)
}

// transition resolves the target status from the table and applies it as a
// conditional store update. apply, when given, performs the store write
// itself (used when the move also stamps columns); it must be conditional
// on the observed status.
func (s *service) transition(ctx context.Context, issueID uuid.UUID, action Action, apply func(cur *Issue) error) (*Issue, error) {
	issue, err := s.store.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	to, err := nextStatus(issue.Status, action)
	if err != nil {
		return nil, err
	}

	if apply != nil {
		err = apply(issue)
	} else {
		err = s.store.TransitionStatus(ctx, issueID, issue.Status, to)
	}
	if err != nil {
		if errors.Is(err, ErrStale) {
			return nil, s.staleError(ctx, issueID, action)
		}
		return nil, err
	}

	issue.Status = to
	s.log.Info().
		Str("issue_id", issueID.String()).
		Str("action", string(action)).
		Str("status", string(to)).
		Msg("issue transitioned")
	return issue, nil
}

// staleError re-reads the issue after a lost race and names the state the
// winner left behind.
func (s *service) staleError(ctx context.Context, issueID uuid.UUID, action Action) error {
	cur, err := s.store.Get(ctx, issueID)
	if err != nil {
		return err
	}
	return liberr.New(liberr.KindInvalidStateTransition,
		"cannot %s an issue in status %s", action, cur.Status)
}
