package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/models"
	"github.com/planora/planora-api/internal/services/oidc"
	"go.uber.org/zap"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// Auth creates authentication middleware that validates JWT tokens and
// provisions a local user row from the verified claims.
func Auth(db *database.DB, oidcProvider *oidc.Provider, jwksManager *oidc.JWKSManager, providerName string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, status, message := resolveUser(r, db, oidcProvider, jwksManager, providerName, logger)
			if user == nil {
				respondError(w, status, message)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the user when a valid token is present but lets the
// request through without one. Feed endpoints use this so an anonymous
// caller gets an empty feed rather than a 401.
func OptionalAuth(db *database.DB, oidcProvider *oidc.Provider, jwksManager *oidc.JWKSManager, providerName string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, _, _ := resolveUser(r, db, oidcProvider, jwksManager, providerName, logger)
			if user != nil {
				r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveUser verifies the bearer token and returns the matching user,
// creating one on first sight of a new subject. A nil user comes back with
// the HTTP status and message to reject with.
func resolveUser(r *http.Request, db *database.DB, oidcProvider *oidc.Provider, jwksManager *oidc.JWKSManager, providerName string, logger *zap.Logger) (*models.User, int, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, http.StatusUnauthorized, "Missing Authorization header"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, http.StatusUnauthorized, "Invalid Authorization header format"
	}

	tokenString := parts[1]
	ctx := r.Context()

	oidcConfig, err := oidcProvider.GetConfig(ctx, providerName)
	if err != nil {
		return nil, http.StatusInternalServerError, "Failed to get OIDC configuration"
	}

	if oidcConfig.JWKSUrl == nil {
		return nil, http.StatusInternalServerError, "JWKS URL not configured"
	}

	verifier := oidc.NewVerifier(jwksManager, oidcConfig.Issuer)
	claims, err := verifier.Verify(ctx, tokenString, *oidcConfig.JWKSUrl)
	if err != nil {
		logger.Warn("token_verification_failed",
			zap.String("issuer", oidcConfig.Issuer),
			zap.String("jwks_url", *oidcConfig.JWKSUrl),
			zap.Error(err),
		)
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	userRepo := database.NewUserRepository(db)
	user, err := userRepo.GetByProviderID(ctx, claims.Sub)
	if err != nil {
		// The repository wraps sql.ErrNoRows, so errors.Is will unwrap it
		if errors.Is(err, sql.ErrNoRows) {
			user = &models.User{
				ID:            uuid.New(),
				Email:         claims.Email,
				ProviderID:    &claims.Sub,
				Name:          &claims.Name,
				EmailVerified: true,
			}
			if err := userRepo.Create(ctx, user); err != nil {
				logger.Error("failed_to_create_user", zap.Error(err))
				return nil, http.StatusInternalServerError, "Failed to create user"
			}
		} else {
			logger.Error("failed_to_fetch_user", zap.Error(err))
			return nil, http.StatusInternalServerError, "Database error"
		}
	} else {
		// Refresh profile fields when the claims moved on
		updateNeeded := false
		if user.Email != claims.Email {
			user.Email = claims.Email
			updateNeeded = true
		}
		if (user.Name == nil && claims.Name != "") || (user.Name != nil && *user.Name != claims.Name) {
			name := claims.Name
			user.Name = &name
			updateNeeded = true
		}
		if updateNeeded {
			if err := userRepo.Update(ctx, user); err != nil {
				logger.Warn("failed_to_update_user", zap.Error(err))
			}
		}
	}

	return user, 0, ""
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
