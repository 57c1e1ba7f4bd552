package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jcastellr/ballotbox-be/internal/services"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the JSON body for failed requests. Code carries the
// machine-readable failure mode; Message the human-readable detail.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service failure modes to distinct HTTP statuses and codes.
// Errors outside the taxonomy are reported as a generic server fault.
func writeError(w http.ResponseWriter, err error) {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, services.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, services.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, services.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrInvalidRole):
		status, code = http.StatusUnprocessableEntity, "invalid_role"
	case errors.Is(err, services.ErrAlreadyVoted):
		status, code = http.StatusConflict, "already_voted"
	case errors.Is(err, services.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, services.ErrConsistency):
		status, code = http.StatusInternalServerError, "consistency_violation"
	default:
		log.Error().Err(err).Msg("Unexpected server error")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "internal_error", Message: "internal server error"})
		return
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: err.Error()})
}
