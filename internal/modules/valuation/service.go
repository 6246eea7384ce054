package valuation

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/domain"
	"github.com/ozank/portfoy/internal/events"
)

// PositionSource yields a user's aggregated positions
type PositionSource interface {
	GetPositions(userID int64) ([]domain.Position, error)
}

// PriceSource yields the latest known quote for an asset
type PriceSource interface {
	Latest(assetID int64) (*domain.PriceQuote, error)
}

// Engine computes portfolio valuations in base currency.
//
// Computing a valuation is never a pure read: every run appends one snapshot
// row, which is the sole mechanism populating the value-history trend.
type Engine struct {
	positions PositionSource
	prices    PriceSource
	snapshots *SnapshotRepository
	fx        FXTable
	bus       *events.Bus
	log       zerolog.Logger
}

// NewEngine creates a new valuation engine
func NewEngine(
	positions PositionSource,
	prices PriceSource,
	snapshots *SnapshotRepository,
	fx FXTable,
	bus *events.Bus,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		positions: positions,
		prices:    prices,
		snapshots: snapshots,
		fx:        fx,
		bus:       bus,
		log:       log.With().Str("service", "valuation").Logger(),
	}
}

// ComputeValuation values the user's portfolio and records a snapshot
func (e *Engine) ComputeValuation(userID int64) (*domain.Valuation, error) {
	valuation, err := e.value(userID)
	if err != nil {
		return nil, err
	}

	if _, err := e.snapshots.Insert(userID, valuation.TotalValue, valuation.CalculatedAt); err != nil {
		return nil, err
	}

	e.bus.Publish(events.ValuationComputed, "valuation", map[string]interface{}{
		"user_id":     userID,
		"total_value": valuation.TotalValue,
		"positions":   len(valuation.Positions),
	})

	return valuation, nil
}

// Allocation returns each market's share of the current total value.
// A read-only view derived from the same math as ComputeValuation; it does
// not record a snapshot.
func (e *Engine) Allocation(userID int64) (map[domain.Market]float64, error) {
	valuation, err := e.value(userID)
	if err != nil {
		return nil, err
	}

	byMarket := make(map[domain.Market]float64)
	for _, pos := range valuation.Positions {
		byMarket[pos.Market] += pos.ValueBase
	}

	if valuation.TotalValue > 0 {
		for market := range byMarket {
			byMarket[market] /= valuation.TotalValue
		}
	}

	return byMarket, nil
}

// value runs the per-position valuation without side effects
func (e *Engine) value(userID int64) (*domain.Valuation, error) {
	positions, err := e.positions.GetPositions(userID)
	if err != nil {
		return nil, err
	}

	valuation := &domain.Valuation{
		Positions:    make([]domain.ValuedPosition, 0, len(positions)),
		CalculatedAt: time.Now().UTC(),
	}

	var totalCost float64
	for _, pos := range positions {
		valued, err := e.valuePosition(pos)
		if err != nil {
			return nil, err
		}
		valuation.Positions = append(valuation.Positions, valued)
		valuation.TotalValue += valued.ValueBase
		totalCost += valued.CostBase
	}
	valuation.TotalProfitLoss = valuation.TotalValue - totalCost

	return valuation, nil
}

func (e *Engine) valuePosition(pos domain.Position) (domain.ValuedPosition, error) {
	valued := domain.ValuedPosition{Position: pos}

	// A quote-less asset is valued at its own cost basis, which makes its
	// unrealized P/L exactly zero. No synthetic price is invented.
	valued.CurrentPrice = pos.AverageCost
	quote, err := e.prices.Latest(pos.AssetID)
	if err != nil {
		return valued, err
	}
	if quote != nil {
		valued.CurrentPrice = quote.Price
	}

	valued.FXRate = e.fx.Rate(pos.Market)
	valued.ValueBase = valued.CurrentPrice * valued.FXRate * pos.NetQuantity
	valued.CostBase = pos.AverageCost * valued.FXRate * pos.NetQuantity
	valued.ProfitLoss = valued.ValueBase - valued.CostBase

	return valued, nil
}
