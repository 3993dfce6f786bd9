// internal/lending/domain.go
package lending

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an issue. The canonical representation
// is this enumerated type; boundaries normalize into it and nothing in the
// engine matches on loose strings.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusReturnRequested Status = "RETURN_REQUESTED"
	StatusReturned        Status = "RETURNED"
)

// ParseStatus normalizes a status string to its canonical form.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusReturnRequested, StatusReturned:
		return Status(s), true
	}
	return "", false
}

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusReturned || s == StatusRejected
}

// Active reports whether the issue still holds a reserved copy. The
// inventory conservation invariant counts exactly these statuses.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved || s == StatusReturnRequested
}

// Issue is a single borrowing record linking one user to one book copy.
// It is created by a borrow request and mutated only by the state machine;
// once RETURNED or REJECTED it never changes again.
type Issue struct {
	ID           uuid.UUID  `json:"id"`
	BookID       uuid.UUID  `json:"book_id"`
	UserID       uuid.UUID  `json:"user_id"`
	Status       Status     `json:"status"`
	IssueDate    time.Time  `json:"issue_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	RenewalCount int        `json:"renewal_count"`
}
