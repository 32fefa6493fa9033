package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/planora/planora-api/internal/middleware"
	"github.com/planora/planora-api/internal/schedule"
)

// ScheduleHandler exposes the schedule and notification feeds
type ScheduleHandler struct {
	aggregator *schedule.Aggregator
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(aggregator *schedule.Aggregator) *ScheduleHandler {
	return &ScheduleHandler{aggregator: aggregator}
}

// RegisterScheduleRoutes registers the dashboard feed route
// The router should already have the /schedule prefix
func (h *ScheduleHandler) RegisterScheduleRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSchedule).Methods("GET")
}

// RegisterNotificationRoutes registers the notification feed routes
// The router should already have the /notifications prefix
func (h *ScheduleHandler) RegisterNotificationRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetNotifications).Methods("GET")
	r.HandleFunc("/{key}/dismiss", h.DismissNotification).Methods("POST")
	r.HandleFunc("/dismiss", h.DismissNotification).Methods("POST") // body-based variant
}

// DismissRequest identifies the feed item to dismiss
type DismissRequest struct {
	ItemKey string `json:"item_key"`
}

// GetSchedule returns the merged dashboard feed. Anonymous callers get an
// empty feed, not an error.
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	items, err := h.aggregator.Dashboard(r.Context(), callerID(r), time.Now())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build schedule")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// GetNotifications returns the feed with dismissed items filtered out
func (h *ScheduleHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.aggregator.Notifications(r.Context(), callerID(r), time.Now())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build notifications")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// DismissNotification records a persisted dismissal for a feed item
func (h *ScheduleHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	key := mux.Vars(r)["key"]
	if key == "" {
		var req DismissRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
			return
		}
		key = req.ItemKey
	}

	if err := h.aggregator.Dismiss(r.Context(), user.ID, key); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid item key")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// callerID returns the authenticated user's id or uuid.Nil for anonymous
// requests.
func callerID(r *http.Request) uuid.UUID {
	if user := middleware.UserFromContext(r); user != nil {
		return user.ID
	}
	return uuid.Nil
}
