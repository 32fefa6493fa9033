package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/models"
)

// ErrSessionAlreadyCompleted is returned when a completion is attempted on a
// session row that has already been marked complete.
var ErrSessionAlreadyCompleted = errors.New("session already completed")

// SessionRepository handles pomodoro session database operations
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, duration, completed, task_id, started_at, completed_at`

func scanSession(scanner interface{ Scan(...any) error }) (*models.PomodoroSession, error) {
	session := &models.PomodoroSession{}
	var taskID uuid.NullUUID
	var completedAt sql.NullTime

	err := scanner.Scan(
		&session.ID,
		&session.UserID,
		&session.Duration,
		&session.Completed,
		&taskID,
		&session.StartedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if taskID.Valid {
		id := taskID.UUID
		session.TaskID = &id
	}
	if completedAt.Valid {
		t := completedAt.Time
		session.CompletedAt = &t
	}

	return session, nil
}

// Create creates a new open session row
func (r *SessionRepository) Create(ctx context.Context, session *models.PomodoroSession) error {
	query := `
		INSERT INTO pomodoro_sessions (id, user_id, duration, completed, task_id, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING started_at
	`

	err := r.db.QueryRowContext(ctx, query,
		session.ID,
		session.UserID,
		session.Duration,
		session.Completed,
		session.TaskID,
		session.StartedAt,
	).Scan(&session.StartedAt)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PomodoroSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM pomodoro_sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// Complete marks an open session as completed. The completed = FALSE guard
// makes a second completion of the same session fail with
// ErrSessionAlreadyCompleted instead of silently rewriting completed_at.
func (r *SessionRepository) Complete(ctx context.Context, id, userID uuid.UUID, completedAt time.Time) error {
	query := `
		UPDATE pomodoro_sessions
		SET completed = TRUE, completed_at = $3
		WHERE id = $1 AND user_id = $2 AND completed = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, id, userID, completedAt)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish "already completed" from "no such row"
		session, getErr := r.GetByID(ctx, id)
		if getErr == nil && session.UserID == userID && session.Completed {
			return ErrSessionAlreadyCompleted
		}
		return fmt.Errorf("session not found")
	}

	return nil
}

// ListSince retrieves a user's sessions with started_at >= since, oldest
// first. Used for the daily summary.
func (r *SessionRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.PomodoroSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM pomodoro_sessions
		WHERE user_id = $1 AND started_at >= $2
		ORDER BY started_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.PomodoroSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}
