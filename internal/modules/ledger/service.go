package ledger

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/domain"
	"github.com/ozank/portfoy/internal/events"
)

// AssetLookup is the slice of the catalog the ledger needs
type AssetLookup interface {
	GetByID(id int64) (*domain.Asset, error)
}

// Service wraps the trade repository with input validation and event
// publication.
type Service struct {
	trades *TradeRepository
	assets AssetLookup
	bus    *events.Bus
	log    zerolog.Logger
}

// NewService creates a new ledger service
func NewService(trades *TradeRepository, assets AssetLookup, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		trades: trades,
		assets: assets,
		bus:    bus,
		log:    log.With().Str("service", "ledger").Logger(),
	}
}

// RecordTrade validates and persists one trade.
//
// Validation happens before anything is written: non-positive quantity or
// price, an unknown side or asset, and a SELL larger than the current net
// holding are all rejected with typed errors.
func (s *Service) RecordTrade(trade domain.Trade) (*domain.Trade, error) {
	if !trade.Side.Valid() {
		return nil, domain.ErrInvalidSide
	}
	if trade.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if trade.Price <= 0 {
		return nil, domain.ErrInvalidPrice
	}

	asset, err := s.assets.GetByID(trade.AssetID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up asset %d: %w", trade.AssetID, err)
	}
	if asset == nil {
		return nil, domain.ErrUnknownAsset
	}

	if trade.Side == domain.SideSell {
		held, err := s.trades.NetQuantity(trade.UserID, trade.AssetID)
		if err != nil {
			return nil, err
		}
		if trade.Quantity > held {
			return nil, &domain.SellExceedsHoldingError{Requested: trade.Quantity, Held: held}
		}
	}

	if trade.ExecutedAt.IsZero() {
		trade.ExecutedAt = time.Now().UTC()
	}

	id, err := s.trades.Insert(trade)
	if err != nil {
		return nil, err
	}
	trade.ID = id

	s.bus.Publish(events.TradeRecorded, "ledger", map[string]interface{}{
		"trade_id": id,
		"user_id":  trade.UserID,
		"asset_id": trade.AssetID,
		"side":     string(trade.Side),
		"quantity": trade.Quantity,
		"price":    trade.Price,
	})

	return &trade, nil
}

// ListTrades returns a user's trades, newest first
func (s *Service) ListTrades(userID int64) ([]domain.Trade, error) {
	return s.trades.ListByUser(userID)
}

// GetPositions returns the user's open positions
func (s *Service) GetPositions(userID int64) ([]domain.Position, error) {
	return s.trades.AggregatePositions(userID)
}

// DeleteAllTrades removes every trade of one user for one asset, dropping
// the position from the portfolio entirely.
func (s *Service) DeleteAllTrades(userID, assetID int64) (int64, error) {
	deleted, err := s.trades.DeleteByUserAndAsset(userID, assetID)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.bus.Publish(events.PositionRemoved, "ledger", map[string]interface{}{
			"user_id":  userID,
			"asset_id": assetID,
			"trades":   deleted,
		})
	}

	return deleted, nil
}

// HeldAssetIDs returns the ids of assets with a nonzero net position
func (s *Service) HeldAssetIDs(userID int64) ([]int64, error) {
	positions, err := s.trades.AggregatePositions(userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(positions))
	for _, pos := range positions {
		ids = append(ids, pos.AssetID)
	}
	return ids, nil
}
