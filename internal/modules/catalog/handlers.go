package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles catalog HTTP requests
type Handler struct {
	assetRepo *AssetRepository
	log       zerolog.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(assetRepo *AssetRepository, log zerolog.Logger) *Handler {
	return &Handler{
		assetRepo: assetRepo,
		log:       log.With().Str("handler", "catalog").Logger(),
	}
}

// RegisterRoutes registers catalog routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assets", h.HandleListAssets)
	r.Get("/assets/{assetID}", h.HandleGetAsset)
	r.Get("/markets", h.HandleListMarkets)
}

// HandleListAssets returns the full asset catalog
func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assetRepo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assets")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, assets)
}

// HandleGetAsset returns one asset by id
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "assetID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	asset, err := h.assetRepo.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Int64("asset_id", id).Msg("Failed to get asset")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if asset == nil {
		h.writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// HandleListMarkets returns all market codes
func (h *Handler) HandleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.assetRepo.GetMarkets()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list markets")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, markets)
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
