package pricing

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/domain"
)

// Handler handles pricing HTTP requests
type Handler struct {
	refresh *RefreshService
	history *HistoryRepository
	assets  AssetSource
	log     zerolog.Logger
}

// NewHandler creates a new pricing handler
func NewHandler(refresh *RefreshService, history *HistoryRepository, assets AssetSource, log zerolog.Logger) *Handler {
	return &Handler{
		refresh: refresh,
		history: history,
		assets:  assets,
		log:     log.With().Str("handler", "pricing").Logger(),
	}
}

// RegisterRoutes registers pricing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/portfolio/refresh", h.HandleRefreshHeld)
	r.Post("/assets/prices/refresh", h.HandleRefreshCatalog)
	r.Get("/assets/prices", h.HandleWatchlistPrices)
	r.Get("/assets/{assetID}/prices", h.HandleAssetHistory)
}

// HandleRefreshHeld refreshes quotes for the caller's held assets and
// reports (ok, fail) counts. Partial failure is a success response; the
// counts tell the story.
func (h *Handler) HandleRefreshHeld(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	result, err := h.refresh.RefreshHeldAssets(r.Context(), userID, false)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Refresh failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleRefreshCatalog refreshes quotes for every catalog asset
func (h *Handler) HandleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	result, err := h.refresh.RefreshCatalog(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Catalog refresh failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type watchlistRow struct {
	Asset      domain.Asset `json:"asset"`
	Price      *float64     `json:"price,omitempty"`
	ObservedAt *string      `json:"observed_at,omitempty"`
}

// HandleWatchlistPrices returns every catalog asset with its latest known
// price, when one exists.
func (h *Handler) HandleWatchlistPrices(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assets")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	latest, err := h.history.LatestByAsset()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load latest prices")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := make([]watchlistRow, 0, len(assets))
	for _, asset := range assets {
		row := watchlistRow{Asset: asset}
		if quote, ok := latest[asset.ID]; ok {
			price := quote.Price
			observedAt := quote.ObservedAt.Format("2006-01-02T15:04:05Z07:00")
			row.Price = &price
			row.ObservedAt = &observedAt
		}
		result = append(result, row)
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleAssetHistory returns the stored quote history for one asset
func (h *Handler) HandleAssetHistory(w http.ResponseWriter, r *http.Request) {
	assetID, err := strconv.ParseInt(chi.URLParam(r, "assetID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	quotes, err := h.history.ListByAsset(assetID, limit)
	if err != nil {
		h.log.Error().Err(err).Int64("asset_id", assetID).Msg("Failed to load price history")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if quotes == nil {
		quotes = []domain.PriceQuote{}
	}
	h.writeJSON(w, http.StatusOK, quotes)
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
