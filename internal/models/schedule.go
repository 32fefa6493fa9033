package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleItemKind distinguishes the source table of a schedule item
type ScheduleItemKind string

const (
	ScheduleItemKindTask ScheduleItemKind = "task"
	ScheduleItemKindExam ScheduleItemKind = "exam"
)

// ScheduleItem is an ephemeral display record merging task and exam data for
// the dashboard and notification feeds. It is rebuilt on every aggregation
// pass and never persisted; Key carries the only identity that survives a
// pass, namespaced by source so rows from different tables cannot collide.
type ScheduleItem struct {
	Key         string           `json:"key"` // "exam-<id>", "overdue-<id>", "upcoming-<id>"
	SourceID    uuid.UUID        `json:"source_id"`
	Kind        ScheduleItemKind `json:"kind"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	EventTime   time.Time        `json:"event_time"`
	DisplayTime string           `json:"display_time"`
	Course      *string          `json:"course,omitempty"`
	Priority    *TaskPriority    `json:"priority,omitempty"`
	Completed   *bool            `json:"completed,omitempty"`
}

// NotificationDismissal marks a feed item as dismissed for a user. Keyed by
// the item's namespaced key so a dismissal survives re-aggregation.
type NotificationDismissal struct {
	UserID      uuid.UUID `json:"user_id"`
	ItemKey     string    `json:"item_key"`
	DismissedAt time.Time `json:"dismissed_at"`
}
