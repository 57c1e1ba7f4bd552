package handlers

import (
	"net/http"

	"github.com/jcastellr/ballotbox-be/internal/models"
	"github.com/jcastellr/ballotbox-be/internal/services"
	"github.com/rs/zerolog/log"
)

// StatsHandler handles HTTP requests for election statistics.
type StatsHandler struct {
	service services.StatsServiceProvider
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(service services.StatsServiceProvider) *StatsHandler {
	return &StatsHandler{service: service}
}

// Get handles the aggregate statistics report.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ComputeStatistics(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute statistics")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetIntegrity runs an on-demand invariant scan for administrators.
func (h *StatsHandler) GetIntegrity(w http.ResponseWriter, r *http.Request) {
	violations, err := h.service.CheckIntegrity(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Integrity scan failed")
		writeError(w, err)
		return
	}
	if violations == nil {
		violations = []models.Violation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         len(violations) == 0,
		"violations": violations,
	})
}
