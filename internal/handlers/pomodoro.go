package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/middleware"
	"github.com/planora/planora-api/internal/pomodoro"
)

// PomodoroHandler exposes the pomodoro session controller over HTTP
type PomodoroHandler struct {
	manager *pomodoro.Manager
}

// NewPomodoroHandler creates a new pomodoro handler
func NewPomodoroHandler(manager *pomodoro.Manager) *PomodoroHandler {
	return &PomodoroHandler{manager: manager}
}

// RegisterRoutes registers pomodoro routes on the given router
// The router should already have the /pomodoro prefix
func (h *PomodoroHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetStatus).Methods("GET")
	r.HandleFunc("/start", h.Start).Methods("POST")
	r.HandleFunc("/toggle", h.Toggle).Methods("POST")
	r.HandleFunc("/complete", h.Complete).Methods("POST")
	r.HandleFunc("/reset", h.Reset).Methods("POST")
	r.HandleFunc("/summary", h.GetDailySummary).Methods("GET")
}

// StartSessionRequest optionally links the session to a task
type StartSessionRequest struct {
	TaskID *uuid.UUID `json:"task_id,omitempty"`
}

// GetStatus returns the current controller state for the user
func (h *PomodoroHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, h.manager.Controller(user.ID).Status())
}

// Start creates a new session without beginning the countdown
func (h *PomodoroHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	// Body is optional; an empty body starts an unlinked session
	var req StartSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
			return
		}
	}

	controller := h.manager.Controller(user.ID)
	var err error
	if req.TaskID != nil {
		_, err = controller.StartForTask(r.Context(), *req.TaskID)
	} else {
		_, err = controller.Start(r.Context())
	}
	if err != nil {
		if errors.Is(err, pomodoro.ErrSessionInProgress) {
			respondJSONError(w, http.StatusConflict, "Conflict", "A session is already in progress")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to start session")
		return
	}

	respondJSON(w, http.StatusCreated, controller.Status())
}

// Toggle starts, pauses, or resumes the countdown
func (h *PomodoroHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	status, err := h.manager.Controller(user.ID).Toggle(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to toggle session")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// Complete closes the open session early
func (h *PomodoroHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	controller := h.manager.Controller(user.ID)
	if err := controller.CompleteSession(r.Context()); err != nil {
		switch {
		case errors.Is(err, pomodoro.ErrNoOpenSession):
			respondJSONError(w, http.StatusConflict, "Conflict", "No session is in progress")
		case errors.Is(err, database.ErrSessionAlreadyCompleted):
			respondJSONError(w, http.StatusConflict, "Conflict", "Session is already completed")
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete session")
		}
		return
	}

	respondJSON(w, http.StatusOK, controller.Status())
}

// Reset abandons the open session and restores the full duration
func (h *PomodoroHandler) Reset(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, h.manager.Controller(user.ID).Reset())
}

// GetDailySummary returns today's sessions and completed totals
func (h *PomodoroHandler) GetDailySummary(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	summary, err := h.manager.DailySummary(r.Context(), user.ID, time.Now())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve daily summary")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
