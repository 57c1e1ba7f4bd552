package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jcastellr/ballotbox-be/internal/models"
	"github.com/jcastellr/ballotbox-be/internal/services"
	"github.com/rs/zerolog/log"
)

// Notifier is pinged after any state change that affects the live results.
type Notifier interface {
	Notify()
}

// VoteHandler handles HTTP requests for vote casting and administration.
type VoteHandler struct {
	service  services.VoteServiceProvider
	notifier Notifier
}

// NewVoteHandler creates a new VoteHandler. notifier may be nil.
func NewVoteHandler(service services.VoteServiceProvider, notifier Notifier) *VoteHandler {
	return &VoteHandler{service: service, notifier: notifier}
}

// CastPayload defines the structure for vote casting requests.
type CastPayload struct {
	VoterID     string `json:"voterId"`
	CandidateID string `json:"candidateId"`
}

// Create handles casting a vote.
func (h *VoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload CastPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "validation_error", Message: "invalid request body"})
		return
	}

	vote, err := h.service.CastVote(r.Context(), payload.VoterID, payload.CandidateID)
	if err != nil {
		log.Warn().Err(err).Str("voter_id", payload.VoterID).Str("candidate_id", payload.CandidateID).Msg("Failed to cast vote")
		writeError(w, err)
		return
	}

	if h.notifier != nil {
		h.notifier.Notify()
	}
	writeJSON(w, http.StatusCreated, vote)
}

// GetAll handles retrieving all recorded votes.
func (h *VoteHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	votes, err := h.service.ListVotes(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list votes")
		writeError(w, err)
		return
	}
	if votes == nil {
		votes = []models.Vote{}
	}
	writeJSON(w, http.StatusOK, votes)
}

// Get handles retrieving a vote by its ID.
func (h *VoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	vote, err := h.service.GetVote(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

// Delete handles the administrative reversal of a vote.
func (h *VoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.RevertVote(r.Context(), id); err != nil {
		log.Warn().Err(err).Str("vote_id", id).Msg("Failed to revert vote")
		writeError(w, err)
		return
	}

	if h.notifier != nil {
		h.notifier.Notify()
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "vote reverted"})
}
