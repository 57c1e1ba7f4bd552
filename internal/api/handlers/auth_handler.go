package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/jcastellr/ballotbox-be/internal/auth"
	"github.com/jcastellr/ballotbox-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles login and logout.
type AuthHandler struct {
	service services.AccountServiceProvider
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AccountServiceProvider) *AuthHandler {
	return &AuthHandler{service: service}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles credential verification and JWT issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "validation_error", Message: "invalid request body"})
		return
	}
	if payload.Email == "" || payload.Password == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "validation_error", Message: "email and password are required"})
		return
	}

	account, err := h.service.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		writeError(w, err)
		return
	}

	token, err := auth.GenerateJWT(account)
	if err != nil {
		log.Error().Err(err).Str("account_id", account.ID).Msg("Failed to generate JWT")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "internal_error", Message: "failed to generate token"})
		return
	}

	// Set Secure flag based on environment.
	isProd := os.Getenv("APP_ENV") == "production"

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		Secure:   isProd,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  account,
	})
}

// Logout clears the session cookie. Tokens are not tracked server-side, so
// the holder of a bearer token keeps it until expiry; clients must discard
// theirs on logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
