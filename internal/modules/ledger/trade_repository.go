// Package ledger owns the append-only trade ledger and the position
// aggregation derived from it.
package ledger

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/database"
	"github.com/ozank/portfoy/internal/domain"
)

// TradeRepository handles trade ledger database operations
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repo", "trade").Logger(),
	}
}

// Insert appends one trade to the ledger
func (r *TradeRepository) Insert(trade domain.Trade) (int64, error) {
	query := `INSERT INTO trades (user_id, asset_id, trade_type, quantity, price, trade_time)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.Exec(query,
		trade.UserID,
		trade.AssetID,
		string(trade.Side),
		trade.Quantity,
		trade.Price,
		database.FormatTime(trade.ExecutedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted trade id: %w", err)
	}

	r.log.Debug().
		Int64("trade_id", id).
		Int64("user_id", trade.UserID).
		Int64("asset_id", trade.AssetID).
		Str("side", string(trade.Side)).
		Float64("quantity", trade.Quantity).
		Msg("Trade recorded")

	return id, nil
}

// ListByUser returns all trades for a user, newest first
func (r *TradeRepository) ListByUser(userID int64) ([]domain.Trade, error) {
	query := `SELECT id, user_id, asset_id, trade_type, quantity, price, trade_time
		FROM trades
		WHERE user_id = ?
		ORDER BY trade_time DESC, id DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var trade domain.Trade
		var side, executedAt string
		if err := rows.Scan(&trade.ID, &trade.UserID, &trade.AssetID, &side, &trade.Quantity, &trade.Price, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trade.Side = domain.TradeSide(strings.ToUpper(side))
		if trade.ExecutedAt, err = database.ParseTime(executedAt); err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// DeleteByUserAndAsset removes every trade of one user for one asset.
// This is the only deletion the ledger supports; it is how a position row is
// removed entirely.
func (r *TradeRepository) DeleteByUserAndAsset(userID, assetID int64) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trades WHERE user_id = ? AND asset_id = ?`, userID, assetID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete trades: %w", err)
	}

	deleted, _ := result.RowsAffected()
	r.log.Info().
		Int64("user_id", userID).
		Int64("asset_id", assetID).
		Int64("rows_affected", deleted).
		Msg("Trades deleted")

	return deleted, nil
}

// AggregatePositions derives the user's open positions from the ledger.
//
// Net quantity is buys minus sells. Average cost uses BUY legs only and is
// guarded against the zero-buy case (data corrections can leave a group with
// sells only). Groups whose net quantity is exactly zero are dropped. Output
// is ordered by market code then symbol.
func (r *TradeRepository) AggregatePositions(userID int64) ([]domain.Position, error) {
	query := `
		SELECT
			a.id AS asset_id,
			a.symbol,
			a.name,
			m.code AS market_code,
			SUM(CASE WHEN t.trade_type = 'BUY'  THEN t.quantity
			         WHEN t.trade_type = 'SELL' THEN -t.quantity
			         ELSE 0 END) AS net_qty,
			CASE
				WHEN SUM(CASE WHEN t.trade_type = 'BUY' THEN t.quantity ELSE 0 END) = 0
					THEN 0
				ELSE
					SUM(CASE WHEN t.trade_type = 'BUY' THEN t.quantity * t.price ELSE 0 END)
					/
					SUM(CASE WHEN t.trade_type = 'BUY' THEN t.quantity ELSE 0 END)
			END AS avg_cost
		FROM trades t
		JOIN assets a  ON a.id = t.asset_id
		JOIN markets m ON m.id = a.market_id
		WHERE t.user_id = ?
		GROUP BY a.id, a.symbol, a.name, m.code
		HAVING SUM(CASE WHEN t.trade_type = 'BUY' THEN t.quantity ELSE -t.quantity END) <> 0
		ORDER BY m.code, a.symbol`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var pos domain.Position
		var market string
		if err := rows.Scan(&pos.AssetID, &pos.Symbol, &pos.Name, &market, &pos.NetQuantity, &pos.AverageCost); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		pos.Market = domain.Market(strings.ToUpper(market))
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// NetQuantity returns the current net holding for one user+asset.
// Zero when no trades exist.
func (r *TradeRepository) NetQuantity(userID, assetID int64) (float64, error) {
	query := `SELECT COALESCE(SUM(CASE WHEN trade_type = 'BUY' THEN quantity ELSE -quantity END), 0)
		FROM trades
		WHERE user_id = ? AND asset_id = ?`

	var net float64
	if err := r.db.QueryRow(query, userID, assetID).Scan(&net); err != nil {
		return 0, fmt.Errorf("failed to compute net quantity: %w", err)
	}
	return net, nil
}

// UserIDsWithTrades returns the distinct users present in the ledger.
// The automatic refresh job iterates these.
func (r *TradeRepository) UserIDsWithTrades() ([]int64, error) {
	rows, err := r.db.Query(`SELECT DISTINCT user_id FROM trades ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger users: %w", err)
	}

	return ids, nil
}
