package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/middleware"
	"github.com/planora/planora-api/internal/models"
	"github.com/planora/planora-api/internal/queue"
	"github.com/planora/planora-api/internal/validation"
	"go.uber.org/zap"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskRepo *database.TaskRepository
	jobQueue queue.JobQueue
	log      *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskRepo *database.TaskRepository) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo}
}

// NewTaskHandlerWithQueue creates a task handler that also enqueues a
// reminder job when a task is created with a due date
func NewTaskHandlerWithQueue(taskRepo *database.TaskRepository, jobQueue queue.JobQueue, log *zap.Logger) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo, jobQueue: jobQueue, log: log}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix (e.g., from apiRouter.PathPrefix("/tasks"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
	r.HandleFunc("/{id}/position", h.UpdatePosition).Methods("PATCH")
}

const (
	// MaxTitleLength is the maximum length for a task or exam title
	MaxTitleLength = 500
	// MaxDescriptionLength is the maximum length for free-text fields
	MaxDescriptionLength = 10000
)

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=500"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=10000"`
	Course      *string    `json:"course,omitempty" validate:"omitempty,max=200"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
}

// UpdateTaskRequest represents an update task request
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Course      *string    `json:"course,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	Position    *int       `json:"position,omitempty"`
}

// ListTasks lists tasks for the authenticated user, ordered by position
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()

	var completed *bool
	if c := r.URL.Query().Get("completed"); c != "" {
		parsed, err := strconv.ParseBool(c)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid completed filter")
			return
		}
		completed = &parsed
	}

	var course *string
	if c := r.URL.Query().Get("course"); c != "" {
		course = &c
	}

	tasks, err := h.taskRepo.GetByUserID(ctx, user.ID, completed, course)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTaskRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		// Check if error is due to request size limit
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	// Validate request
	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	// Sanitize title
	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	priority := models.TaskPriorityMedium
	if req.Priority != nil {
		if err := validation.ValidateTaskPriority(*req.Priority); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		priority = models.TaskPriority(*req.Priority)
	}

	ctx := r.Context()
	task := &models.Task{
		ID:          uuid.New(),
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		Course:      req.Course,
		DueDate:     req.DueDate,
		Priority:    priority,
	}

	if err := h.taskRepo.Create(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	h.enqueueReminder(ctx, task)

	respondJSON(w, http.StatusCreated, task)
}

// enqueueReminder schedules a reminder job for a task with a due date. A
// broker failure must not fail the create, so errors are only logged.
func (h *TaskHandler) enqueueReminder(ctx context.Context, task *models.Task) {
	if h.jobQueue == nil || task.DueDate == nil {
		return
	}

	job := queue.NewJob(queue.JobTypeTaskReminder, task.UserID, &task.ID)
	if notBefore := task.DueDate.Add(-24 * time.Hour); notBefore.After(time.Now()) {
		job.NotBefore = &notBefore
	}

	if err := h.jobQueue.Enqueue(ctx, job); err != nil {
		if h.log != nil {
			h.log.Error("failed_to_enqueue_task_reminder",
				zap.String("task_id", task.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// UpdatePosition moves a task within the user's manual ordering
func (h *TaskHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.loadOwnedTask(w, r, user.ID)
	if !ok {
		return
	}

	var req struct {
		Position int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if req.Position < 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Position must be non-negative")
		return
	}

	task.Position = req.Position
	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task position")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.loadOwnedTask(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask updates an existing task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.loadOwnedTask(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	// Update fields if provided with validation
	if req.Title != nil {
		sanitized := validation.SanitizeText(*req.Title)
		if sanitized == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		if len(sanitized) > MaxTitleLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTitleLength))
			return
		}
		task.Title = sanitized
	}
	if req.Description != nil {
		if len(*req.Description) > MaxDescriptionLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Description exceeds maximum length of %d characters", MaxDescriptionLength))
			return
		}
		task.Description = req.Description
	}
	if req.Course != nil {
		task.Course = req.Course
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Priority != nil {
		if err := validation.ValidateTaskPriority(*req.Priority); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.Priority = models.TaskPriority(*req.Priority)
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if req.Position != nil {
		task.Position = *req.Position
	}

	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.loadOwnedTask(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.taskRepo.Delete(r.Context(), task.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask marks a task as completed
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.loadOwnedTask(w, r, user.ID)
	if !ok {
		return
	}

	task.Completed = true
	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// loadOwnedTask parses the path id, loads the task, and enforces ownership.
// On failure it writes the error response and returns ok=false.
func (h *TaskHandler) loadOwnedTask(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Task, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return nil, false
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return nil, false
	}

	// Verify task belongs to user
	if task.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return nil, false
	}

	return task, true
}
