package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/middleware"
	"github.com/planora/planora-api/internal/services/oidc"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	oidcProvider *oidc.Provider
	providerName string
	userRepo     *database.UserRepository
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(oidcProvider *oidc.Provider, providerName string, userRepo *database.UserRepository) *AuthHandler {
	return &AuthHandler{
		oidcProvider: oidcProvider,
		providerName: providerName,
		userRepo:     userRepo,
	}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/telegram", h.LinkTelegram).Methods("PUT")
}

// LinkTelegramRequest links or unlinks the account's Telegram chat
type LinkTelegramRequest struct {
	ChatID *int64 `json:"chat_id"`
}

// GetOIDCLogin returns OIDC configuration for frontend
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	loginConfig, err := h.oidcProvider.GetLoginConfig(ctx, h.providerName)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Failed to get OIDC configuration", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, loginConfig)
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// LinkTelegram stores the user's Telegram chat id for reminder delivery. A
// null chat_id unlinks the chat.
func (h *AuthHandler) LinkTelegram(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req LinkTelegramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := h.userRepo.SetTelegramChatID(r.Context(), user.ID, req.ChatID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update telegram link")
		return
	}

	user.TelegramChatID = req.ChatID
	respondJSON(w, http.StatusOK, user)
}
