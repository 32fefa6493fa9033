package models

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents a scheduled exam
type Exam struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Course    string    `json:"course"`
	Title     string    `json:"title"`
	ExamDate  time.Time `json:"exam_date"`
	Location  *string   `json:"location,omitempty"`
	Weight    *int      `json:"weight,omitempty"` // percent of final grade, 0-100
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
