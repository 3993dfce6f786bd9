// internal/policy/store_postgres.go
package policy

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store over the single library_policy row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Seed inserts the default policy if no row exists yet.
func (s *PostgresStore) Seed(ctx context.Context) error {
	p := Default()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO library_policy
			(policy_id, max_books_per_user, max_issue_days, fine_per_day,
			 grace_period_days, lost_book_penalty_multiplier, max_renewals)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (policy_id) DO NOTHING
	`, p.MaxBooksPerUser, p.MaxIssueDays, p.FinePerDay, p.GracePeriodDays,
		p.LostBookPenaltyMultiplier, p.MaxRenewals)
	if err != nil {
		return fmt.Errorf("seed policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (Policy, error) {
	var p Policy
	err := s.db.QueryRowContext(ctx, `
		SELECT max_books_per_user, max_issue_days, fine_per_day,
		       grace_period_days, lost_book_penalty_multiplier, max_renewals, updated_at
		FROM library_policy
		WHERE policy_id = 1
	`).Scan(&p.MaxBooksPerUser, &p.MaxIssueDays, &p.FinePerDay,
		&p.GracePeriodDays, &p.LostBookPenaltyMultiplier, &p.MaxRenewals, &p.UpdatedAt)
	if err != nil {
		return Policy{}, fmt.Errorf("load policy: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p Policy) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE library_policy
		SET max_books_per_user = $1, max_issue_days = $2, fine_per_day = $3,
		    grace_period_days = $4, lost_book_penalty_multiplier = $5,
		    max_renewals = $6, updated_at = $7
		WHERE policy_id = 1
	`, p.MaxBooksPerUser, p.MaxIssueDays, p.FinePerDay, p.GracePeriodDays,
		p.LostBookPenaltyMultiplier, p.MaxRenewals, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("save policy: singleton row missing")
	}
	return nil
}
