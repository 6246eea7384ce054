package pricing

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/database"
	"github.com/ozank/portfoy/internal/domain"
)

// HistoryRepository handles the append-only price history
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a new price history repository
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repo", "price_history").Logger(),
	}
}

// Insert appends one observed quote
func (r *HistoryRepository) Insert(quote domain.PriceQuote) error {
	_, err := r.db.Exec(
		`INSERT INTO prices_history (asset_id, price, created_at) VALUES (?, ?, ?)`,
		quote.AssetID,
		quote.Price,
		database.FormatTime(quote.ObservedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert price quote: %w", err)
	}
	return nil
}

// Latest returns the most recent quote for an asset, or nil when none was
// ever observed. Ties on the timestamp are broken by insertion order.
func (r *HistoryRepository) Latest(assetID int64) (*domain.PriceQuote, error) {
	query := `SELECT id, asset_id, price, created_at
		FROM prices_history
		WHERE asset_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var quote domain.PriceQuote
	var observedAt string
	err := r.db.QueryRow(query, assetID).Scan(&quote.ID, &quote.AssetID, &quote.Price, &observedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest price: %w", err)
	}

	if quote.ObservedAt, err = database.ParseTime(observedAt); err != nil {
		return nil, err
	}
	return &quote, nil
}

// LatestByAsset returns the most recent quote per asset in one pass.
// Used by the watchlist view to avoid a query per catalog row.
func (r *HistoryRepository) LatestByAsset() (map[int64]domain.PriceQuote, error) {
	query := `SELECT p.id, p.asset_id, p.price, p.created_at
		FROM prices_history p
		JOIN (
			SELECT asset_id, MAX(id) AS max_id
			FROM prices_history
			GROUP BY asset_id
		) latest ON latest.max_id = p.id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest prices: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]domain.PriceQuote)
	for rows.Next() {
		var quote domain.PriceQuote
		var observedAt string
		if err := rows.Scan(&quote.ID, &quote.AssetID, &quote.Price, &observedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price quote: %w", err)
		}
		if quote.ObservedAt, err = database.ParseTime(observedAt); err != nil {
			return nil, err
		}
		result[quote.AssetID] = quote
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest prices: %w", err)
	}

	return result, nil
}

// ListByAsset returns the stored quotes for one asset, oldest first,
// capped at limit rows (0 = no cap).
func (r *HistoryRepository) ListByAsset(assetID int64, limit int) ([]domain.PriceQuote, error) {
	query := `SELECT id, asset_id, price, created_at
		FROM prices_history
		WHERE asset_id = ?
		ORDER BY created_at ASC, id ASC`
	args := []interface{}{assetID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var quotes []domain.PriceQuote
	for rows.Next() {
		var quote domain.PriceQuote
		var observedAt string
		if err := rows.Scan(&quote.ID, &quote.AssetID, &quote.Price, &observedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price quote: %w", err)
		}
		if quote.ObservedAt, err = database.ParseTime(observedAt); err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}

	return quotes, nil
}
