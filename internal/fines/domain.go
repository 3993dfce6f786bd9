// internal/fines/domain.go
package fines

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a fine.
type Type string

const (
	TypeLateReturn Type = "LATE_RETURN"
	TypeLostBook   Type = "LOST_BOOK"
)

// Fine is one monetary penalty tied to an issue. Amounts never decrease
// after creation; corrections are new records.
type Fine struct {
	ID        uuid.UUID  `json:"id"`
	IssueID   uuid.UUID  `json:"issue_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Type      Type       `json:"fine_type"`
	Amount    float64    `json:"fine_amount"`
	IsPaid    bool       `json:"is_paid"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// overdueDays counts whole 24h periods past the due date, less the grace
// period, never negative.
func overdueDays(dueDate, ref time.Time, graceDays int) int {
	late := int(ref.Sub(dueDate).Hours()/24) - graceDays
	if late < 0 {
		return 0
	}
	return late
}
