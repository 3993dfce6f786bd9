// internal/inventory/domain.go
package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Book is one catalog title with its copy counts. The invariant
// 0 <= available <= total holds at all times and is enforced by the ledger
// operations, never by direct column writes.
type Book struct {
	ID              uuid.UUID `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookUpdate carries a partial book edit; nil fields keep their value.
// Copy counts go through AdjustTotalCopies instead so the ledger can
// re-validate them.
type BookUpdate struct {
	ISBN   *string `json:"isbn,omitempty"`
	Title  *string `json:"title,omitempty"`
	Author *string `json:"author,omitempty"`
}
