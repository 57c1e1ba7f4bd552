package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jcastellr/ballotbox-be/internal/auth"
	"github.com/jcastellr/ballotbox-be/internal/models"
	"github.com/jcastellr/ballotbox-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AccountHandler handles HTTP requests for account management.
type AccountHandler struct {
	service services.AccountServiceProvider
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(service services.AccountServiceProvider) *AccountHandler {
	return &AccountHandler{service: service}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Party    string `json:"party"`
}

// UpdatePayload defines the structure for account update requests. Absent
// fields are left unchanged.
type UpdatePayload struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Party    *string `json:"party"`
}

// Create handles new account registration. Anyone may register as a voter
// or candidate; admin accounts can only be created by an existing admin.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "validation_error", Message: "invalid request body"})
		return
	}

	if payload.Role == string(models.RoleAdmin) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok || claims.Role != models.RoleAdmin {
			writeJSON(w, http.StatusForbidden, ErrorResponse{Code: "forbidden", Message: "admin accounts can only be created by an administrator"})
			return
		}
	}

	account, err := h.service.CreateAccount(r.Context(), payload.Name, payload.Email, payload.Password, payload.Role, payload.Party)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed to register account")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// GetAll handles retrieving all accounts.
func (h *AccountHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list accounts")
		writeError(w, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// Get handles retrieving an account by its ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Update handles a partial update of an account's profile.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload UpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "validation_error", Message: "invalid request body"})
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), id, services.AccountPatch{
		Name:   payload.Name,
		Email:  payload.Email,
		Secret: payload.Password,
		Party:  payload.Party,
	})
	if err != nil {
		log.Warn().Err(err).Str("account_id", id).Msg("Failed to update account")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Delete handles the permanent deletion of an account.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		log.Warn().Err(err).Str("account_id", id).Msg("Failed to delete account")
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
