package server

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers exposes process and host diagnostics
type SystemHandlers struct {
	dbPath    string
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(dbPath string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		dbPath:    dbPath,
		startedAt: time.Now().UTC(),
		log:       log.With().Str("component", "system").Logger(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/system/stats", h.HandleGetStats)
}

// HandleGetStats returns CPU, memory and database size information
func (h *SystemHandlers) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.systemStats()

	var dbSizeMB float64
	if info, err := os.Stat(h.dbPath); err == nil {
		dbSizeMB = float64(info.Size()) / 1024 / 1024
	}

	response := map[string]interface{}{
		"cpu_percent":    cpuPct,
		"memory_percent": memPct,
		"db_size_mb":     dbSizeMB,
		"goroutines":     runtime.NumGoroutine(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system stats")
	}
}

// systemStats samples CPU over 100ms so the endpoint stays fast
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
