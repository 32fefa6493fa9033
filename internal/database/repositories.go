package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/models"
)

// TaskReader is the read surface the schedule aggregator and reminder worker
// need from the task repository. Narrow interfaces keep those consumers
// testable with in-memory fakes.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListOverdue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.Task, error)
	ListDueSoon(ctx context.Context, userID uuid.UUID, now time.Time, horizon time.Duration, limit int) ([]*models.Task, error)
}

// ExamReader is the read surface the schedule aggregator and reminder worker
// need from the exam repository.
type ExamReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Exam, error)
	ListUpcoming(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.Exam, error)
}

// DismissalStore is the surface the notification feed needs for persisted
// dismissals.
type DismissalStore interface {
	Dismiss(ctx context.Context, userID uuid.UUID, itemKey string) error
	ListKeys(ctx context.Context, userID uuid.UUID) (map[string]bool, error)
}

// SessionStore is the surface the pomodoro controller needs from the session
// repository.
type SessionStore interface {
	Create(ctx context.Context, session *models.PomodoroSession) error
	Complete(ctx context.Context, id, userID uuid.UUID, completedAt time.Time) error
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.PomodoroSession, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskReader     = (*TaskRepository)(nil)
	_ ExamReader     = (*ExamRepository)(nil)
	_ DismissalStore = (*DismissalRepository)(nil)
	_ SessionStore   = (*SessionRepository)(nil)
)
