// internal/notifications/store_postgres.go
package notifications

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, n *Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (notification_id, user_id, type, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, n.ID, n.UserID, n.Type, n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, userID uuid.UUID, typ *Type) ([]*Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT notification_id, user_id, type, message, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2::text IS NULL OR type = $2)
		ORDER BY created_at DESC
	`, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
