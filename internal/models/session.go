package models

import (
	"time"

	"github.com/google/uuid"
)

// PomodoroSession represents one persisted countdown attempt. A session is
// open from creation until it is completed or abandoned by a reset.
type PomodoroSession struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Duration    int        `json:"duration"` // minutes
	Completed   bool       `json:"completed"`
	TaskID      *uuid.UUID `json:"task_id,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DailySummary aggregates a user's sessions since the start of the day.
type DailySummary struct {
	Sessions         []*PomodoroSession `json:"sessions"`
	CompletedMinutes int                `json:"completed_minutes"`
	CompletedCount   int                `json:"completed_count"`
}
