package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthHandler reports service liveness plus a host resource snapshot.
type HealthHandler struct {
	db *sql.DB
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthReport is the health endpoint response body.
type HealthReport struct {
	Status        string  `json:"status"`
	Database      string  `json:"database"`
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
}

// Get handles the health check request.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	report := HealthReport{Status: "ok", Database: "ok"}

	if err := h.db.PingContext(r.Context()); err != nil {
		log.Error().Err(err).Msg("Health check: database ping failed")
		report.Status = "degraded"
		report.Database = "unreachable"
	}

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		report.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		report.MemoryPercent = vm.UsedPercent
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
