// Package valuation implements the portfolio valuation engine, the snapshot
// store it feeds, and the trend series built from the snapshots.
package valuation

import "github.com/ozank/portfoy/internal/domain"

// FXTable maps a market to the fixed multiplier converting its native
// currency into the base currency. A static table injected at startup, not
// a live rate feed.
type FXTable map[domain.Market]float64

// NewFXTable builds the default table: domestic equities are already in base
// currency, the USD-denominated markets share one fixed rate.
func NewFXTable(usdRate float64) FXTable {
	return FXTable{
		domain.MarketBIST:      1.0,
		domain.MarketUS:        usdRate,
		domain.MarketCrypto:    usdRate,
		domain.MarketCommodity: usdRate,
	}
}

// Rate returns the multiplier for a market. Unknown markets are assumed to
// already be in base currency.
func (t FXTable) Rate(market domain.Market) float64 {
	if rate, ok := t[market]; ok {
		return rate
	}
	return 1.0
}
