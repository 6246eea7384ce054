// Package domain contains the core models shared across modules.
// It is a pure package with no infrastructure dependencies.
package domain

import "time"

// Market is the enumerated trading venue of an asset. The set is closed;
// venue codes come from the markets reference table.
type Market string

const (
	MarketBIST      Market = "BIST"      // Domestic equities, already in base currency
	MarketUS        Market = "US"        // Foreign equities, USD denominated
	MarketCrypto    Market = "CRYPTO"    // Crypto, USD denominated
	MarketCommodity Market = "COMMODITY" // Commodities, USD denominated
)

// TradeSide is the direction of a trade
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Valid reports whether the side is one of the two known values
func (s TradeSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Asset is immutable reference data describing a tradable instrument.
// YahooSymbol may be empty, in which case the asset cannot be auto-priced.
type Asset struct {
	ID          int64  `json:"id"`
	Market      Market `json:"market"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	YahooSymbol string `json:"yahoo_symbol,omitempty"`
}

// Tradable reports whether the asset can be priced against the quote provider
func (a Asset) Tradable() bool {
	return a.YahooSymbol != ""
}

// Trade is one append-only ledger entry. Quantity and Price are per the
// asset's native currency and must both be positive.
type Trade struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	AssetID    int64     `json:"asset_id"`
	Side       TradeSide `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Position is the derived net holding for one asset. Never persisted,
// recomputed from the ledger on every request.
//
// AverageCost is computed from BUY legs only: sells reduce quantity but do
// not move the average. When a position fully closes and later reopens the
// average starts over from the new buys.
type Position struct {
	AssetID     int64   `json:"asset_id"`
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Market      Market  `json:"market"`
	NetQuantity float64 `json:"net_quantity"`
	AverageCost float64 `json:"average_cost"`
}

// PriceQuote is one observed price for an asset. Append-only history;
// "current price" is the most recently observed quote.
type PriceQuote struct {
	ID         int64     `json:"id"`
	AssetID    int64     `json:"asset_id"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// ValuationSnapshot is one timestamped total-portfolio-value record, written
// as a side effect of every valuation run.
type ValuationSnapshot struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	TotalValue   float64   `json:"total_value"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// ValuedPosition is a position extended with current price and base-currency
// value and profit/loss figures.
type ValuedPosition struct {
	Position
	CurrentPrice float64 `json:"current_price"`
	FXRate       float64 `json:"fx_rate"`
	ValueBase    float64 `json:"value_base"`
	CostBase     float64 `json:"cost_base"`
	ProfitLoss   float64 `json:"profit_loss"`
}

// Valuation is the full portfolio view in base currency
type Valuation struct {
	Positions       []ValuedPosition `json:"positions"`
	TotalValue      float64          `json:"total_value"`
	TotalProfitLoss float64          `json:"total_profit_loss"`
	CalculatedAt    time.Time        `json:"calculated_at"`
}
