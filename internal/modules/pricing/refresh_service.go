package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/domain"
	"github.com/ozank/portfoy/internal/events"
)

// QuoteClient is the adapter contract the orchestrator drives.
// Implemented by YahooClient in production and by fakes in tests.
type QuoteClient interface {
	FetchCurrentPrice(ctx context.Context, asset domain.Asset) (float64, error)
}

// AssetSource resolves asset ids into catalog rows
type AssetSource interface {
	GetByIDs(ids []int64) ([]domain.Asset, error)
	GetAll() ([]domain.Asset, error)
}

// HeldAssetSource yields the assets a user currently holds
type HeldAssetSource interface {
	HeldAssetIDs(userID int64) ([]int64, error)
}

// RefreshResult counts the outcome of one refresh run
type RefreshResult struct {
	RunID     string `json:"run_id"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// RefreshService coordinates fetching and persisting quotes. Every asset is
// handled independently: a failed fetch is counted and the batch moves on.
// Overlapping runs are harmless because each stored quote is a fresh append.
type RefreshService struct {
	quotes  QuoteClient
	assets  AssetSource
	held    HeldAssetSource
	history *HistoryRepository
	bus     *events.Bus
	log     zerolog.Logger
}

// NewRefreshService creates a new refresh service
func NewRefreshService(
	quotes QuoteClient,
	assets AssetSource,
	held HeldAssetSource,
	history *HistoryRepository,
	bus *events.Bus,
	log zerolog.Logger,
) *RefreshService {
	return &RefreshService{
		quotes:  quotes,
		assets:  assets,
		held:    held,
		history: history,
		bus:     bus,
		log:     log.With().Str("service", "refresh").Logger(),
	}
}

// RefreshHeldAssets fetches and persists a fresh quote for every asset the
// user currently holds. Only held assets are refreshed, never the full
// catalog, so cost stays bounded by what the user actually needs priced.
func (s *RefreshService) RefreshHeldAssets(ctx context.Context, userID int64, automatic bool) (RefreshResult, error) {
	held, err := s.held.HeldAssetIDs(userID)
	if err != nil {
		return RefreshResult{}, err
	}
	if len(held) == 0 {
		return RefreshResult{RunID: uuid.NewString()}, nil
	}

	assets, err := s.assets.GetByIDs(held)
	if err != nil {
		return RefreshResult{}, err
	}

	result := s.refreshAssets(ctx, assets)

	s.bus.Publish(events.PricesRefreshed, "pricing", map[string]interface{}{
		"run_id":    result.RunID,
		"user_id":   userID,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"automatic": automatic,
	})

	return result, nil
}

// RefreshCatalog fetches and persists quotes for the whole asset catalog.
// Used to seed history for watchlist assets that nobody holds yet.
func (s *RefreshService) RefreshCatalog(ctx context.Context) (RefreshResult, error) {
	assets, err := s.assets.GetAll()
	if err != nil {
		return RefreshResult{}, err
	}

	result := s.refreshAssets(ctx, assets)

	s.bus.Publish(events.PricesRefreshed, "pricing", map[string]interface{}{
		"run_id":    result.RunID,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"automatic": false,
	})

	return result, nil
}

func (s *RefreshService) refreshAssets(ctx context.Context, assets []domain.Asset) RefreshResult {
	result := RefreshResult{RunID: uuid.NewString()}
	log := s.log.With().Str("run_id", result.RunID).Logger()

	for _, asset := range assets {
		if ctx.Err() != nil {
			// Shutdown mid-batch: already-persisted quotes stay, the rest
			// count as failures.
			result.Failed += len(assets) - result.Succeeded - result.Failed
			log.Warn().Err(ctx.Err()).Msg("Refresh batch cancelled")
			break
		}

		price, err := s.quotes.FetchCurrentPrice(ctx, asset)
		if err != nil {
			result.Failed++
			log.Warn().
				Err(err).
				Int64("asset_id", asset.ID).
				Str("symbol", asset.Symbol).
				Msg("Quote fetch failed")
			continue
		}

		quote := domain.PriceQuote{
			AssetID:    asset.ID,
			Price:      price,
			ObservedAt: time.Now().UTC(),
		}
		if err := s.history.Insert(quote); err != nil {
			result.Failed++
			log.Error().
				Err(err).
				Int64("asset_id", asset.ID).
				Msg("Failed to persist quote")
			continue
		}

		result.Succeeded++
	}

	log.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("Refresh run finished")

	return result
}
