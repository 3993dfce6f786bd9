// internal/fines/store_postgres.go
package fines

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"libralend/internal/liberr"
)

// PostgresStore implements Store using PostgreSQL. The "at most one unpaid
// LATE_RETURN fine per issue" invariant is a partial unique index; a
// violation surfaces as created=false instead of an error so evaluation
// stays idempotent under concurrent sweeps.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed fine store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const fineColumns = `fine_id, issue_id, user_id, fine_type, fine_amount, is_paid, created_at, paid_at`

func (s *PostgresStore) CreateLateFine(ctx context.Context, f *Fine) (bool, error) {
	err := s.insert(ctx, f)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) Create(ctx context.Context, f *Fine) error {
	return s.insert(ctx, f)
}

func (s *PostgresStore) insert(ctx context.Context, f *Fine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fines (fine_id, issue_id, user_id, fine_type, fine_amount, is_paid, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`, f.ID, f.IssueID, f.UserID, f.Type, f.Amount, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fine: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Fine, error) {
	f := &Fine{}
	var paidAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT `+fineColumns+` FROM fines WHERE fine_id = $1`, id).
		Scan(&f.ID, &f.IssueID, &f.UserID, &f.Type, &f.Amount, &f.IsPaid, &f.CreatedAt, &paidAt)
	if err == sql.ErrNoRows {
		return nil, liberr.New(liberr.KindNotFound, "fine %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get fine: %w", err)
	}
	if paidAt.Valid {
		f.PaidAt = &paidAt.Time
	}
	return f, nil
}

func (s *PostgresStore) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE fines SET is_paid = TRUE, paid_at = $2
		WHERE fine_id = $1 AND NOT is_paid
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark fine paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	// Zero rows is either "already paid" (a no-op) or an unknown fine.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM fines WHERE fine_id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check fine exists: %w", err)
	}
	if !exists {
		return false, liberr.New(liberr.KindNotFound, "fine %s not found", id)
	}
	return false, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID, unpaidOnly bool) ([]*Fine, error) {
	return s.queryFines(ctx, `
		SELECT `+fineColumns+` FROM fines
		WHERE user_id = $1 AND ($2 = FALSE OR NOT is_paid)
		ORDER BY created_at DESC
	`, userID, unpaidOnly)
}

func (s *PostgresStore) ListUnpaid(ctx context.Context) ([]*Fine, error) {
	return s.queryFines(ctx, `
		SELECT `+fineColumns+` FROM fines
		WHERE NOT is_paid
		ORDER BY created_at
	`)
}

func (s *PostgresStore) queryFines(ctx context.Context, q string, args ...any) ([]*Fine, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query fines: %w", err)
	}
	defer rows.Close()

	var out []*Fine
	for rows.Next() {
		f := &Fine{}
		var paidAt sql.NullTime
		if err := rows.Scan(&f.ID, &f.IssueID, &f.UserID, &f.Type, &f.Amount, &f.IsPaid, &f.CreatedAt, &paidAt); err != nil {
			return nil, fmt.Errorf("scan fine: %w", err)
		}
		if paidAt.Valid {
			f.PaidAt = &paidAt.Time
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
