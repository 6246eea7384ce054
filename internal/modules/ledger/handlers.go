package ledger

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/domain"
)

// Handler handles trade ledger HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// RegisterRoutes registers trade routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/trades", func(r chi.Router) {
		r.Get("/", h.HandleListTrades)
		r.Post("/", h.HandleRecordTrade)
		r.Delete("/{assetID}", h.HandleDeleteTrades)
	})
	r.Get("/portfolio/positions", h.HandleGetPositions)
}

type recordTradeRequest struct {
	AssetID    int64   `json:"asset_id"`
	Side       string  `json:"side"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	ExecutedAt string  `json:"executed_at,omitempty"` // RFC3339, defaults to now
}

// HandleRecordTrade records one BUY or SELL trade
func (h *Handler) HandleRecordTrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req recordTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade := domain.Trade{
		UserID:   userID,
		AssetID:  req.AssetID,
		Side:     domain.TradeSide(req.Side),
		Quantity: req.Quantity,
		Price:    req.Price,
	}
	if req.ExecutedAt != "" {
		executedAt, err := time.Parse(time.RFC3339, req.ExecutedAt)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "executed_at must be RFC3339")
			return
		}
		trade.ExecutedAt = executedAt
	}

	recorded, err := h.service.RecordTrade(trade)
	if err != nil {
		if domain.IsValidationError(err) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to record trade")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, recorded)
}

// HandleListTrades returns the user's trades, newest first
func (h *Handler) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	trades, err := h.service.ListTrades(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list trades")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	h.writeJSON(w, http.StatusOK, trades)
}

// HandleDeleteTrades bulk-deletes all of the user's trades for one asset
func (h *Handler) HandleDeleteTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	assetID, err := strconv.ParseInt(chi.URLParam(r, "assetID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	deleted, err := h.service.DeleteAllTrades(userID, assetID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Int64("asset_id", assetID).Msg("Failed to delete trades")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

// HandleGetPositions returns the user's aggregated open positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	positions, err := h.service.GetPositions(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to aggregate positions")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	h.writeJSON(w, http.StatusOK, positions)
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
