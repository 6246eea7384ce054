package valuation

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles valuation HTTP requests
type Handler struct {
	engine    *Engine
	trend     *TrendService
	snapshots *SnapshotRepository
	log       zerolog.Logger
}

// NewHandler creates a new valuation handler
func NewHandler(engine *Engine, trend *TrendService, snapshots *SnapshotRepository, log zerolog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		trend:     trend,
		snapshots: snapshots,
		log:       log.With().Str("handler", "valuation").Logger(),
	}
}

// RegisterRoutes registers valuation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolio/valuation", h.HandleGetValuation)
	r.Get("/portfolio/allocation", h.HandleGetAllocation)
	r.Get("/portfolio/history", h.HandleGetHistory)
	r.Get("/portfolio/history/summary", h.HandleGetHistorySummary)
	r.Get("/portfolio/snapshots/latest", h.HandleGetLatestSnapshot)
}

// HandleGetValuation values the portfolio. Side-effecting by design: every
// call appends one snapshot row.
func (h *Handler) HandleGetValuation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	valuation, err := h.engine.ComputeValuation(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Valuation failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, valuation)
}

// HandleGetAllocation returns each market's share of total value
func (h *Handler) HandleGetAllocation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	allocation, err := h.engine.Allocation(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Allocation failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, allocation)
}

// HandleGetHistory returns the daily portfolio value series
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	points, err := h.trend.History(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to build history")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if points == nil {
		points = []TrendPoint{}
	}
	h.writeJSON(w, http.StatusOK, points)
}

// HandleGetHistorySummary returns statistics over the daily series
func (h *Handler) HandleGetHistorySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	summary, err := h.trend.Summary(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to summarize history")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// HandleGetLatestSnapshot returns the most recent snapshot, if any
func (h *Handler) HandleGetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	snap, err := h.snapshots.Latest(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to load latest snapshot")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap == nil {
		h.writeError(w, http.StatusNotFound, "no snapshots recorded")
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "missing or invalid X-User-ID header")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
