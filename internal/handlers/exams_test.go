package handlers

import (
	"testing"
	"time"

	"github.com/planora/planora-api/internal/validation"
)

func TestCreateExamRequestValidation(t *testing.T) {
	t.Parallel()

	examDate := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		req     CreateExamRequest
		wantErr bool
	}{
		{
			name: "valid request",
			req:  CreateExamRequest{Course: "CS101", Title: "Midterm", ExamDate: examDate},
		},
		{
			name: "valid with weight",
			req:  CreateExamRequest{Course: "CS101", Title: "Final", ExamDate: examDate, Weight: intPtr(40)},
		},
		{
			name:    "missing course",
			req:     CreateExamRequest{Title: "Midterm", ExamDate: examDate},
			wantErr: true,
		},
		{
			name:    "missing title",
			req:     CreateExamRequest{Course: "CS101", ExamDate: examDate},
			wantErr: true,
		},
		{
			name:    "missing exam date",
			req:     CreateExamRequest{Course: "CS101", Title: "Midterm"},
			wantErr: true,
		},
		{
			name:    "weight over 100",
			req:     CreateExamRequest{Course: "CS101", Title: "Midterm", ExamDate: examDate, Weight: intPtr(101)},
			wantErr: true,
		},
		{
			name:    "negative weight",
			req:     CreateExamRequest{Course: "CS101", Title: "Midterm", ExamDate: examDate, Weight: intPtr(-1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt := tt
			t.Parallel()

			err := validation.Validate.Struct(tt.req)
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no validation error, got: %v", err)
			}
		})
	}
}

func intPtr(i int) *int {
	return &i
}
