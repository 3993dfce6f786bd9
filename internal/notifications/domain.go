// internal/notifications/domain.go
package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification.
type Type string

const (
	TypeSystem     Type = "SYSTEM"
	TypeReminder   Type = "REMINDER"
	TypeFineNotice Type = "FINE_NOTICE"
)

// ParseType normalizes a type string to its canonical form.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeSystem, TypeReminder, TypeFineNotice:
		return Type(s), true
	}
	return "", false
}

// Notification is one append-only message for a user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
