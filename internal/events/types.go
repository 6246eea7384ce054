// Package events provides the in-process event bus used to notify the UI
// tier asynchronously about background work.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	PricesRefreshed   EventType = "PRICES_REFRESHED"
	TradeRecorded     EventType = "TRADE_RECORDED"
	ValuationComputed EventType = "VALUATION_COMPUTED"
	PositionRemoved   EventType = "POSITION_REMOVED"
	ErrorOccurred     EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}

// PricesRefreshedData is the payload of PricesRefreshed events
type PricesRefreshedData struct {
	RunID     string `json:"run_id"`
	UserID    int64  `json:"user_id"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Automatic bool   `json:"automatic"`
}
