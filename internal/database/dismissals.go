package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DismissalRepository handles notification dismissal database operations
type DismissalRepository struct {
	db *DB
}

// NewDismissalRepository creates a new dismissal repository
func NewDismissalRepository(db *DB) *DismissalRepository {
	return &DismissalRepository{db: db}
}

// Dismiss records a dismissal for the given item key. Dismissing the same
// key twice is a no-op.
func (r *DismissalRepository) Dismiss(ctx context.Context, userID uuid.UUID, itemKey string) error {
	query := `
		INSERT INTO notification_dismissals (user_id, item_key, dismissed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_key) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, userID, itemKey, time.Now()); err != nil {
		return fmt.Errorf("failed to record dismissal: %w", err)
	}

	return nil
}

// ListKeys retrieves all dismissed item keys for a user
func (r *DismissalRepository) ListKeys(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT item_key FROM notification_dismissals WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dismissals: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan dismissal: %w", err)
		}
		keys[key] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dismissals: %w", err)
	}

	return keys, nil
}
