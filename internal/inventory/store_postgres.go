// internal/inventory/store_postgres.go
package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"libralend/internal/liberr"
)

// PostgresStore implements Store using PostgreSQL. Every ledger mutation is
// a single conditional UPDATE so concurrent callers serialize on the row
// without a read-then-write window.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed book store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, b *Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (book_id, isbn, title, author, total_copies, available_copies, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.ISBN, b.Title, b.Author, b.TotalCopies, b.AvailableCopies, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	b := &Book{}
	err := s.db.QueryRowContext(ctx, `
		SELECT book_id, isbn, title, author, total_copies, available_copies, created_at, updated_at
		FROM books
		WHERE book_id = $1
	`, id).Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, liberr.New(liberr.KindNotFound, "book %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, update BookUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET isbn   = COALESCE($2, isbn),
		    title  = COALESCE($3, title),
		    author = COALESCE($4, author),
		    updated_at = NOW()
		WHERE book_id = $1
	`, id, update.ISBN, update.Title, update.Author)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return s.checkFound(res, id)
}

func (s *PostgresStore) AdjustTotal(ctx context.Context, id uuid.UUID, delta int) error {
	// Both counts move together; the guard keeps available >= 0 so a
	// shrink never reclaims copies that are out with members.
	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET total_copies = total_copies + $2,
		    available_copies = available_copies + $2,
		    updated_at = NOW()
		WHERE book_id = $1 AND available_copies + $2 >= 0 AND total_copies + $2 >= 0
	`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust total copies: %w", err)
	}
	return s.checkGuard(ctx, res, id)
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE book_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return s.checkFound(res, id)
}

func (s *PostgresStore) List(ctx context.Context) ([]*Book, error) {
	return s.queryBooks(ctx, `
		SELECT book_id, isbn, title, author, total_copies, available_copies, created_at, updated_at
		FROM books
		ORDER BY title
	`)
}

func (s *PostgresStore) Search(ctx context.Context, query string) ([]*Book, error) {
	return s.queryBooks(ctx, `
		SELECT book_id, isbn, title, author, total_copies, available_copies, created_at, updated_at
		FROM books
		WHERE title ILIKE $1 OR author ILIKE $1 OR isbn = $2
		ORDER BY title
		LIMIT 50
	`, query+"%", query)
}

func (s *PostgresStore) ReserveCopy(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1, updated_at = NOW()
		WHERE book_id = $1 AND available_copies > 0
	`, id)
	if err != nil {
		return fmt.Errorf("reserve copy: %w", err)
	}
	return s.checkGuard(ctx, res, id)
}

func (s *PostgresStore) ReleaseCopy(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies + 1, updated_at = NOW()
		WHERE book_id = $1 AND available_copies < total_copies
	`, id)
	if err != nil {
		return fmt.Errorf("release copy: %w", err)
	}
	return s.checkGuard(ctx, res, id)
}

func (s *PostgresStore) RemoveLostCopy(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET total_copies = total_copies - 1, updated_at = NOW()
		WHERE book_id = $1 AND total_copies > available_copies
	`, id)
	if err != nil {
		return fmt.Errorf("remove lost copy: %w", err)
	}
	return s.checkGuard(ctx, res, id)
}

// checkGuard distinguishes a missing book from a failed ledger guard after
// a zero-row conditional update.
func (s *PostgresStore) checkGuard(ctx context.Context, res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE book_id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if !exists {
		return liberr.New(liberr.KindNotFound, "book %s not found", id)
	}
	return ErrGuardFailed
}

func (s *PostgresStore) checkFound(res sql.Result, id uuid.UUID) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return liberr.New(liberr.KindNotFound, "book %s not found", id)
	}
	return nil
}

func (s *PostgresStore) queryBooks(ctx context.Context, q string, args ...any) ([]*Book, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var out []*Book
	for rows.Next() {
		b := &Book{}
		if err := rows.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
