package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/models"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, title, description, course, due_date, priority, completed, position, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*models.Task, error) {
	task := &models.Task{}
	var description, course sql.NullString
	var dueDate sql.NullTime

	err := scanner.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&course,
		&dueDate,
		&task.Priority,
		&task.Completed,
		&task.Position,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		task.Description = &description.String
	}
	if course.Valid {
		task.Course = &course.String
	}
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}

	return task, nil
}

// Create creates a new task. The position is assigned by a database trigger
// when left at zero.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, course, due_date, priority, completed, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING position, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Course,
		task.DueDate,
		task.Priority,
		task.Completed,
		task.Position,
	).Scan(&task.Position, &task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// GetByUserID retrieves all tasks for a user ordered by list position,
// optionally filtered by completion state and course.
func (r *TaskRepository) GetByUserID(ctx context.Context, userID uuid.UUID, completed *bool, course *string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	argIndex := 2

	if completed != nil {
		query += fmt.Sprintf(" AND completed = $%d", argIndex)
		args = append(args, *completed)
		argIndex++
	}

	if course != nil {
		query += fmt.Sprintf(" AND course = $%d", argIndex)
		args = append(args, *course)
		argIndex++
	}

	query += " ORDER BY position ASC"

	return r.queryTasks(ctx, query, args...)
}

// ListOverdue retrieves incomplete tasks whose due date has passed, most
// overdue first, capped at limit.
func (r *TaskRepository) ListOverdue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND completed = FALSE AND due_date IS NOT NULL AND due_date < $2
		ORDER BY due_date ASC
		LIMIT $3
	`
	return r.queryTasks(ctx, query, userID, now, limit)
}

// ListDueSoon retrieves incomplete tasks due between now and now+horizon,
// soonest first, capped at limit.
func (r *TaskRepository) ListDueSoon(ctx context.Context, userID uuid.UUID, now time.Time, horizon time.Duration, limit int) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND completed = FALSE AND due_date >= $2 AND due_date <= $3
		ORDER BY due_date ASC
		LIMIT $4
	`
	return r.queryTasks(ctx, query, userID, now, now.Add(horizon), limit)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Update updates an existing task. updated_at is refreshed by a database
// trigger.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, course = $4, due_date = $5, priority = $6, completed = $7, position = $8
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Course,
		task.DueDate,
		task.Priority,
		task.Completed,
		task.Position,
	).Scan(&task.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// Delete deletes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}
