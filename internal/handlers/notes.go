package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/middleware"
	"github.com/planora/planora-api/internal/models"
	"github.com/planora/planora-api/internal/validation"
)

// NoteHandler handles note-related requests
type NoteHandler struct {
	noteRepo *database.NoteRepository
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(noteRepo *database.NoteRepository) *NoteHandler {
	return &NoteHandler{noteRepo: noteRepo}
}

// RegisterRoutes registers note routes on the given router
// The router should already have the /notes prefix
func (h *NoteHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListNotes).Methods("GET")
	r.HandleFunc("", h.CreateNote).Methods("POST")
	r.HandleFunc("/{id}", h.GetNote).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateNote).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteNote).Methods("DELETE")
	r.HandleFunc("/{id}/pin", h.PinNote).Methods("POST")
}

// CreateNoteRequest represents a create note request
type CreateNoteRequest struct {
	Title   *string  `json:"title,omitempty" validate:"omitempty,max=500"`
	Content string   `json:"content" validate:"required,min=1,max=100000"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=100"`
	Pinned  bool     `json:"pinned,omitempty"`
}

// UpdateNoteRequest represents an update note request
type UpdateNoteRequest struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
	Pinned  *bool     `json:"pinned,omitempty"`
}

// ListNotes lists notes for the authenticated user, pinned first
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	notes, err := h.noteRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve notes")
		return
	}

	respondJSON(w, http.StatusOK, notes)
}

// CreateNote creates a new note
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateNoteRequest
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

	req.Content = validation.SanitizeText(req.Content)
	if req.Content == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content is required and cannot be empty after sanitization")
		return
	}

	note := &models.Note{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
		Pinned:  req.Pinned,
	}

	if err := h.noteRepo.Create(r.Context(), note); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create note")
		return
	}

	respondJSON(w, http.StatusCreated, note)
}

// GetNote retrieves a note by ID
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, note)
}

// UpdateNote updates an existing note
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateNoteRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if req.Title != nil {
		note.Title = req.Title
	}
	if req.Content != nil {
		sanitized := validation.SanitizeText(*req.Content)
		if sanitized == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content cannot be empty after sanitization")
			return
		}
		note.Content = sanitized
	}
	if req.Tags != nil {
		note.Tags = *req.Tags
	}
	if req.Pinned != nil {
		note.Pinned = *req.Pinned
	}

	if err := h.noteRepo.Update(r.Context(), note); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update note")
		return
	}

	respondJSON(w, http.StatusOK, note)
}

// DeleteNote deletes a note
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.noteRepo.Delete(r.Context(), note.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PinNote toggles the pinned flag on a note
func (h *NoteHandler) PinNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	note, ok := h.loadOwnedNote(w, r, user.ID)
	if !ok {
		return
	}

	note.Pinned = !note.Pinned
	if err := h.noteRepo.Update(r.Context(), note); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update note")
		return
	}

	respondJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) loadOwnedNote(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Note, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid note ID")
		return nil, false
	}

	note, err := h.noteRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Note not found")
		return nil, false
	}

	// Verify note belongs to user
	if note.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Note does not belong to user")
		return nil, false
	}

	return note, true
}
