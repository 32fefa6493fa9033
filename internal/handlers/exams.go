package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
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

// ExamHandler handles exam-related requests
type ExamHandler struct {
	examRepo *database.ExamRepository
	jobQueue queue.JobQueue
	log      *zap.Logger
}

// NewExamHandler creates a new exam handler
func NewExamHandler(examRepo *database.ExamRepository) *ExamHandler {
	return &ExamHandler{examRepo: examRepo}
}

// NewExamHandlerWithQueue creates an exam handler that also enqueues a
// reminder job for each created exam
func NewExamHandlerWithQueue(examRepo *database.ExamRepository, jobQueue queue.JobQueue, log *zap.Logger) *ExamHandler {
	return &ExamHandler{examRepo: examRepo, jobQueue: jobQueue, log: log}
}

// RegisterRoutes registers exam routes on the given router
// The router should already have the /exams prefix
func (h *ExamHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListExams).Methods("GET")
	r.HandleFunc("", h.CreateExam).Methods("POST")
	r.HandleFunc("/{id}", h.GetExam).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateExam).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteExam).Methods("DELETE")
}

// CreateExamRequest represents a create exam request
type CreateExamRequest struct {
	Course   string    `json:"course" validate:"required,min=1,max=200"`
	Title    string    `json:"title" validate:"required,min=1,max=500"`
	ExamDate time.Time `json:"exam_date" validate:"required"`
	Location *string   `json:"location,omitempty" validate:"omitempty,max=500"`
	Weight   *int      `json:"weight,omitempty" validate:"omitempty,min=0,max=100"`
	Notes    *string   `json:"notes,omitempty" validate:"omitempty,max=10000"`
}

// UpdateExamRequest represents an update exam request
type UpdateExamRequest struct {
	Course   *string    `json:"course,omitempty"`
	Title    *string    `json:"title,omitempty"`
	ExamDate *time.Time `json:"exam_date,omitempty"`
	Location *string    `json:"location,omitempty"`
	Weight   *int       `json:"weight,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
}

// ListExams lists exams for the authenticated user, soonest first
func (h *ExamHandler) ListExams(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	exams, err := h.examRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve exams")
		return
	}

	respondJSON(w, http.StatusOK, exams)
}

// CreateExam creates a new exam
func (h *ExamHandler) CreateExam(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateExamRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

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

	req.Course = validation.SanitizeText(req.Course)
	req.Title = validation.SanitizeText(req.Title)
	if req.Course == "" || req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Course and title are required and cannot be empty after sanitization")
		return
	}

	exam := &models.Exam{
		ID:       uuid.New(),
		UserID:   user.ID,
		Course:   req.Course,
		Title:    req.Title,
		ExamDate: req.ExamDate,
		Location: req.Location,
		Weight:   req.Weight,
		Notes:    req.Notes,
	}

	if err := h.examRepo.Create(r.Context(), exam); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create exam")
		return
	}

	h.enqueueReminder(r.Context(), exam)

	respondJSON(w, http.StatusCreated, exam)
}

// enqueueReminder schedules a reminder job for a created exam. A broker
// failure must not fail the create, so errors are only logged.
func (h *ExamHandler) enqueueReminder(ctx context.Context, exam *models.Exam) {
	if h.jobQueue == nil {
		return
	}

	job := queue.NewJob(queue.JobTypeExamReminder, exam.UserID, &exam.ID)
	job.NotAfter = &exam.ExamDate
	if notBefore := exam.ExamDate.Add(-24 * time.Hour); notBefore.After(time.Now()) {
		job.NotBefore = &notBefore
	}

	if err := h.jobQueue.Enqueue(ctx, job); err != nil {
		if h.log != nil {
			h.log.Error("failed_to_enqueue_exam_reminder",
				zap.String("exam_id", exam.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// GetExam retrieves an exam by ID
func (h *ExamHandler) GetExam(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	exam, ok := h.loadOwnedExam(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, exam)
}

// UpdateExam updates an existing exam
func (h *ExamHandler) UpdateExam(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	exam, ok := h.loadOwnedExam(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateExamRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if req.Course != nil {
		sanitized := validation.SanitizeText(*req.Course)
		if sanitized == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Course cannot be empty after sanitization")
			return
		}
		exam.Course = sanitized
	}
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
		exam.Title = sanitized
	}
	if req.ExamDate != nil {
		exam.ExamDate = *req.ExamDate
	}
	if req.Location != nil {
		exam.Location = req.Location
	}
	if req.Weight != nil {
		if *req.Weight < 0 || *req.Weight > 100 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Weight must be between 0 and 100")
			return
		}
		exam.Weight = req.Weight
	}
	if req.Notes != nil {
		exam.Notes = req.Notes
	}

	if err := h.examRepo.Update(r.Context(), exam); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update exam")
		return
	}

	respondJSON(w, http.StatusOK, exam)
}

// DeleteExam deletes an exam
func (h *ExamHandler) DeleteExam(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	exam, ok := h.loadOwnedExam(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.examRepo.Delete(r.Context(), exam.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete exam")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ExamHandler) loadOwnedExam(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Exam, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid exam ID")
		return nil, false
	}

	exam, err := h.examRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Exam not found")
		return nil, false
	}

	// Verify exam belongs to user
	if exam.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Exam does not belong to user")
		return nil, false
	}

	return exam, true
}
