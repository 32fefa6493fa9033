package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/models"
)

// ExamRepository handles exam database operations
type ExamRepository struct {
	db *DB
}

// NewExamRepository creates a new exam repository
func NewExamRepository(db *DB) *ExamRepository {
	return &ExamRepository{db: db}
}

const examColumns = `id, user_id, course, title, exam_date, location, weight, notes, created_at, updated_at`

func scanExam(scanner interface{ Scan(...any) error }) (*models.Exam, error) {
	exam := &models.Exam{}
	var location, notes sql.NullString
	var weight sql.NullInt64

	err := scanner.Scan(
		&exam.ID,
		&exam.UserID,
		&exam.Course,
		&exam.Title,
		&exam.ExamDate,
		&location,
		&weight,
		&notes,
		&exam.CreatedAt,
		&exam.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if location.Valid {
		exam.Location = &location.String
	}
	if weight.Valid {
		w := int(weight.Int64)
		exam.Weight = &w
	}
	if notes.Valid {
		exam.Notes = &notes.String
	}

	return exam, nil
}

// Create creates a new exam
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	query := `
		INSERT INTO exams (id, user_id, course, title, exam_date, location, weight, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		exam.ID,
		exam.UserID,
		exam.Course,
		exam.Title,
		exam.ExamDate,
		exam.Location,
		exam.Weight,
		exam.Notes,
	).Scan(&exam.CreatedAt, &exam.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}

	return nil
}

// GetByID retrieves an exam by ID
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams WHERE id = $1`

	exam, err := scanExam(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("exam not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	return exam, nil
}

// GetByUserID retrieves all exams for a user, soonest first
func (r *ExamRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams WHERE user_id = $1 ORDER BY exam_date ASC`
	return r.queryExams(ctx, query, userID)
}

// ListUpcoming retrieves exams on or after now, soonest first, capped at limit
func (r *ExamRepository) ListUpcoming(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.Exam, error) {
	query := `
		SELECT ` + examColumns + `
		FROM exams
		WHERE user_id = $1 AND exam_date >= $2
		ORDER BY exam_date ASC
		LIMIT $3
	`
	return r.queryExams(ctx, query, userID, now, limit)
}

func (r *ExamRepository) queryExams(ctx context.Context, query string, args ...any) ([]*models.Exam, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exams: %w", err)
	}
	defer rows.Close()

	var exams []*models.Exam
	for rows.Next() {
		exam, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exam: %w", err)
		}
		exams = append(exams, exam)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exams: %w", err)
	}

	return exams, nil
}

// Update updates an existing exam
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	query := `
		UPDATE exams
		SET course = $2, title = $3, exam_date = $4, location = $5, weight = $6, notes = $7
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		exam.ID,
		exam.Course,
		exam.Title,
		exam.ExamDate,
		exam.Location,
		exam.Weight,
		exam.Notes,
	).Scan(&exam.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("exam not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}

	return nil
}

// Delete deletes an exam by ID
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("exam not found")
	}

	return nil
}
