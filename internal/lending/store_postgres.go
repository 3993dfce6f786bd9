// internal/lending/store_postgres.go
package lending

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"libralend/internal/liberr"
)

// PostgresStore implements Store using PostgreSQL. Transitions are
// conditional single-statement updates keyed on the expected status, so two
// racing transitions serialize on the row and the loser sees ErrStale.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed issue store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const issueColumns = `issue_id, book_id, user_id, status, issue_date, due_date, returned_at, renewal_count`

func (s *PostgresStore) Insert(ctx context.Context, issue *Issue, maxActive int) error {
	// The count subquery and the insert run as one statement; a concurrent
	// insert for the same user cannot slip between them.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO issues (issue_id, book_id, user_id, status, issue_date, due_date, renewal_count)
		SELECT $1, $2, $3, $4, $5, $6, 0
		WHERE (SELECT COUNT(*) FROM issues
		       WHERE user_id = $3 AND status IN ('PENDING', 'APPROVED', 'RETURN_REQUESTED')) < $7
	`, issue.ID, issue.BookID, issue.UserID, issue.Status, issue.IssueDate, issue.DueDate, maxActive)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBorrowLimit
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Issue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE issue_id = $1`, id)
	issue, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, liberr.New(liberr.KindNotFound, "issue %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

func (s *PostgresStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE issues SET status = $3, updated_at = NOW()
		WHERE issue_id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("transition issue: %w", err)
	}
	return s.checkStale(ctx, res, id)
}

func (s *PostgresStore) MarkReturned(ctx context.Context, id uuid.UUID, from Status, returnedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE issues SET status = $3, returned_at = $4, updated_at = NOW()
		WHERE issue_id = $1 AND status = $2
	`, id, from, StatusReturned, returnedAt)
	if err != nil {
		return fmt.Errorf("mark returned: %w", err)
	}
	return s.checkStale(ctx, res, id)
}

func (s *PostgresStore) Renew(ctx context.Context, id uuid.UUID, expectCount int, newDue time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE issues
		SET due_date = $3, renewal_count = renewal_count + 1, updated_at = NOW()
		WHERE issue_id = $1 AND status = $2 AND renewal_count = $4
	`, id, StatusApproved, newDue, expectCount)
	if err != nil {
		return fmt.Errorf("renew issue: %w", err)
	}
	return s.checkStale(ctx, res, id)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Issue, error) {
	return s.queryIssues(ctx, `
		SELECT `+issueColumns+` FROM issues
		WHERE user_id = $1
		ORDER BY issue_date DESC
	`, userID)
}

func (s *PostgresStore) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*Issue, error) {
	return s.queryIssues(ctx, `
		SELECT `+issueColumns+` FROM issues
		WHERE user_id = $1 AND status IN ('PENDING', 'APPROVED', 'RETURN_REQUESTED')
		ORDER BY due_date
	`, userID)
}

func (s *PostgresStore) ListOverdue(ctx context.Context, asOf time.Time) ([]*Issue, error) {
	return s.queryIssues(ctx, `
		SELECT `+issueColumns+` FROM issues
		WHERE status IN ('APPROVED', 'RETURN_REQUESTED') AND due_date < $1
		ORDER BY due_date
	`, asOf)
}

func (s *PostgresStore) checkStale(ctx context.Context, res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM issues WHERE issue_id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check issue exists: %w", err)
	}
	if !exists {
		return liberr.New(liberr.KindNotFound, "issue %s not found", id)
	}
	return ErrStale
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*Issue, error) {
	issue := &Issue{}
	var returnedAt sql.NullTime
	err := row.Scan(&issue.ID, &issue.BookID, &issue.UserID, &issue.Status,
		&issue.IssueDate, &issue.DueDate, &returnedAt, &issue.RenewalCount)
	if err != nil {
		return nil, err
	}
	if returnedAt.Valid {
		issue.ReturnedAt = &returnedAt.Time
	}
	return issue, nil
}

func (s *PostgresStore) queryIssues(ctx context.Context, q string, args ...any) ([]*Issue, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var out []*Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}
