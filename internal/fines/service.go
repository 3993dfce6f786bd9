// internal/fines/service.go
package fines

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libralend/internal/auth"
	"libralend/internal/lending"
	"libralend/internal/policy"
)

// Service defines the interface for the fine engine.
type Service interface {
	// EvaluateLateFine creates the LATE_RETURN fine for an overdue issue.
	// Idempotent: an issue with an unpaid late fine is left alone.
	EvaluateLateFine(ctx context.Context, issue lending.Issue) error

	// AssessLostBook closes the issue as lost, shrinks the holding by the
	// unrecoverable copy and creates a LOST_BOOK fine of
	// bookPrice * lost_book_penalty_multiplier. Librarian-only.
	AssessLostBook(ctx context.Context, actor auth.Actor, issueID uuid.UUID, bookPrice float64) (*Fine, error)

	// MarkPaid settles a fine. Calling it again on a paid fine is a no-op,
	// not an error.
	MarkPaid(ctx context.Context, actor auth.Actor, fineID uuid.UUID) (*Fine, error)

	ListUserFines(ctx context.Context, actor auth.Actor, userID uuid.UUID, unpaidOnly bool) ([]*Fine, error)
	// ListUnpaid returns every outstanding fine, librarian-only.
	ListUnpaid(ctx context.Context, actor auth.Actor) ([]*Fine, error)

	// SweepOverdue evaluates late fines for every overdue issue and sends
	// due reminders. Safe to run concurrently with user actions: it only
	// creates fines and is idempotent per issue.
	SweepOverdue(ctx context.Context) error
}

// Store defines the persistence interface for fines.
type Store interface {
	// CreateLateFine inserts f unless the issue already carries an unpaid
	// LATE_RETURN fine; created reports whether a row was written.
	CreateLateFine(ctx context.Context, f *Fine) (created bool, err error)
	Create(ctx context.Context, f *Fine) error
	Get(ctx context.Context, id uuid.UUID) (*Fine, error)
	// MarkPaid stamps the fine as paid if it is not already; paid reports
	// whether this call did the stamping.
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (paid bool, err error)
	ListByUser(ctx context.Context, userID uuid.UUID, unpaidOnly bool) ([]*Fine, error)
	ListUnpaid(ctx context.Context) ([]*Fine, error)
}

// IssueDirectory is the slice of the lending service the engine needs.
type IssueDirectory interface {
	GetIssue(ctx context.Context, issueID uuid.UUID) (*lending.Issue, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*lending.Issue, error)
	CloseLost(ctx context.Context, issueID uuid.UUID, at time.Time) (*lending.Issue, error)
}

// CopyRemover permanently removes a lost copy from the inventory holding.
type CopyRemover interface {
	RemoveLostCopy(ctx context.Context, bookID uuid.UUID) error
}

// PolicyProvider is the read side of the policy store.
type PolicyProvider interface {
	Get(ctx context.Context) (policy.Policy, error)
}

// Notifier delivers fine notices and overdue reminders.
type Notifier interface {
	NotifyFine(ctx context.Context, userID uuid.UUID, message string)
	NotifyReminder(ctx context.Context, userID uuid.UUID, message string)
}
