// internal/users/store_postgres.go
package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"libralend/internal/liberr"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed user store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, full_name, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.FullName, u.Email, u.Role, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, full_name, email, role, created_at
		FROM users
		WHERE user_id = $1
	`, id).Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, liberr.New(liberr.KindNotFound, "user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, full_name, email, role, created_at
		FROM users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET role = $2 WHERE user_id = $1
	`, id, role)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return liberr.New(liberr.KindNotFound, "user %s not found", id)
	}
	return nil
}
