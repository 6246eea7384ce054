// Package catalog exposes the asset and market reference data. The catalog
// is maintained by an external process; this module only reads it.
package catalog

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/domain"
)

// AssetRepository handles asset reference data queries
type AssetRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sql.DB, log zerolog.Logger) *AssetRepository {
	return &AssetRepository{
		db:  db,
		log: log.With().Str("repo", "asset").Logger(),
	}
}

const assetColumns = `a.id, m.code, a.symbol, a.name, a.currency, a.yahoo_symbol`

// GetAll returns the full asset catalog, ordered by market code then symbol
func (r *AssetRepository) GetAll() ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + `
		FROM assets a
		JOIN markets m ON m.id = a.market_id
		ORDER BY m.code, a.symbol`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// GetByID returns one asset, or nil when it does not exist
func (r *AssetRepository) GetByID(id int64) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + `
		FROM assets a
		JOIN markets m ON m.id = a.market_id
		WHERE a.id = ?`

	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset by id: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	asset, err := scanAsset(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}
	return &asset, nil
}

// GetByIDs returns the assets for the given ids, ordered by id. Unknown ids
// are silently absent from the result.
func (r *AssetRepository) GetByIDs(ids []int64) ([]domain.Asset, error) {
	if len(ids) == 0 {
		return []domain.Asset{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `SELECT ` + assetColumns + `
		FROM assets a
		JOIN markets m ON m.id = a.market_id
		WHERE a.id IN (` + placeholders + `)
		ORDER BY a.id`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets by ids: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// GetMarkets returns all known market codes, ascending
func (r *AssetRepository) GetMarkets() ([]domain.Market, error) {
	rows, err := r.db.Query(`SELECT code FROM markets ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan market: %w", err)
		}
		markets = append(markets, domain.Market(code))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating markets: %w", err)
	}

	return markets, nil
}

func scanAsset(rows *sql.Rows) (domain.Asset, error) {
	var asset domain.Asset
	var market string
	var yahooSymbol sql.NullString

	if err := rows.Scan(&asset.ID, &market, &asset.Symbol, &asset.Name, &asset.Currency, &yahooSymbol); err != nil {
		return asset, err
	}

	asset.Market = domain.Market(strings.ToUpper(strings.TrimSpace(market)))
	if yahooSymbol.Valid {
		asset.YahooSymbol = strings.TrimSpace(yahooSymbol.String)
	}

	return asset, nil
}
