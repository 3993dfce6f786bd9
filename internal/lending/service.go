// internal/lending/service.go
package lending

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libralend/internal/auth"
	"libralend/internal/users"
)

// Service defines the interface for the issue state machine.
type Service interface {
	// RequestIssue creates a PENDING issue for userID, reserving the copy
	// immediately. Librarians may request on behalf of any member; members
	// only for themselves.
	RequestIssue(ctx context.Context, actor auth.Actor, userID, bookID uuid.UUID) (*Issue, error)
	Approve(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error)
	Reject(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error)
	RequestReturn(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error)
	CancelReturn(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error)
	ConfirmReturn(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error)
	Renew(ctx context.Context, actor auth.Actor, issueID uuid.UUID) (*Issue, error)

	GetIssue(ctx context.Context, issueID uuid.UUID) (*Issue, error)
	// Actions reports the legal next actions for the issue's current status.
	Actions(ctx context.Context, issueID uuid.UUID) ([]Action, error)
	ListUserIssues(ctx context.Context, actor auth.Actor, userID uuid.UUID) ([]*Issue, error)
	ListUserActive(ctx context.Context, actor auth.Actor, userID uuid.UUID) ([]*Issue, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*Issue, error)

	// CloseLost terminates an issue whose copy was declared unrecoverable.
	// Only the fine engine's lost-book path calls this; the copy is NOT
	// released back to the shelf.
	CloseLost(ctx context.Context, issueID uuid.UUID, at time.Time) (*Issue, error)

	// AttachFineEvaluator wires the fine engine in after construction; the
	// engine depends on this package, so the hook breaks the cycle.
	AttachFineEvaluator(e FineEvaluator)
}

// Store defines the persistence interface for issues. Status moves are
// conditional on the expected current status and report ErrStale when
// another transition won the race.
type Store interface {
	// Insert creates the issue only while the user holds fewer than
	// maxActive active issues; the count check and the insert are one
	// atomic step and ErrBorrowLimit reports a failed check.
	Insert(ctx context.Context, issue *Issue, maxActive int) error
	Get(ctx context.Context, id uuid.UUID) (*Issue, error)
	// TransitionStatus moves id from `from` to `to` as one conditional step.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	// MarkReturned moves id from `from` to RETURNED and stamps returnedAt.
	MarkReturned(ctx context.Context, id uuid.UUID, from Status, returnedAt time.Time) error
	// Renew extends the due date and bumps the renewal counter, conditional
	// on the issue still being APPROVED with the expected counter value.
	Renew(ctx context.Context, id uuid.UUID, expectCount int, newDue time.Time) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Issue, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*Issue, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*Issue, error)
}

// Ledger is the slice of the inventory service the state machine needs.
type Ledger interface {
	ReserveCopy(ctx context.Context, bookID uuid.UUID) error
	ReleaseCopy(ctx context.Context, bookID uuid.UUID) error
}

// UserDirectory validates that borrowers exist; users.Service satisfies it.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Notifier receives lifecycle events as user-visible messages.
type Notifier interface {
	NotifySystem(ctx context.Context, userID uuid.UUID, message string)
	NotifyReminder(ctx context.Context, userID uuid.UUID, message string)
}

// FineEvaluator is implemented by the fine engine; ConfirmReturn hands the
// closed issue over for late-fine evaluation.
type FineEvaluator interface {
	EvaluateLateFine(ctx context.Context, issue Issue) error
}
