// internal/inventory/service.go
package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the book catalog and its copy ledger.
type Service interface {
	AddBook(ctx context.Context, isbn, title, author string, totalCopies int) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, update BookUpdate) (*Book, error)
	// AdjustTotalCopies grows or shrinks the holding; shrinking below the
	// number of outstanding copies is rejected.
	AdjustTotalCopies(ctx context.Context, id uuid.UUID, delta int) (*Book, error)
	RemoveBook(ctx context.Context, id uuid.UUID) error
	ListBooks(ctx context.Context) ([]*Book, error)
	Search(ctx context.Context, query string) ([]*Book, error)

	// ReserveCopy atomically takes one available copy. Concurrent calls
	// against the last copy yield exactly one success.
	ReserveCopy(ctx context.Context, id uuid.UUID) error
	// ReleaseCopy returns a reserved copy to the shelf. Releasing beyond
	// total_copies is an internal-consistency failure, never a clamp.
	ReleaseCopy(ctx context.Context, id uuid.UUID) error
	// RemoveLostCopy permanently shrinks total_copies for a copy that
	// will never come back. The copy must be outstanding.
	RemoveLostCopy(ctx context.Context, id uuid.UUID) error
}

// Store defines the persistence interface for books. The three ledger
// mutations are conditional single steps: the store applies the count
// change only when the guard holds, reporting ErrGuardFailed otherwise.
type Store interface {
	Insert(ctx context.Context, b *Book) error
	Get(ctx context.Context, id uuid.UUID) (*Book, error)
	Update(ctx context.Context, id uuid.UUID, update BookUpdate) error
	AdjustTotal(ctx context.Context, id uuid.UUID, delta int) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Book, error)
	Search(ctx context.Context, query string) ([]*Book, error)

	ReserveCopy(ctx context.Context, id uuid.UUID) error
	ReleaseCopy(ctx context.Context, id uuid.UUID) error
	RemoveLostCopy(ctx context.Context, id uuid.UUID) error
}
