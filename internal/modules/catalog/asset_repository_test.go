package catalog

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/ozank/portfoy/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE markets (
			id   INTEGER PRIMARY KEY,
			code TEXT NOT NULL UNIQUE
		);
		CREATE TABLE assets (
			id           INTEGER PRIMARY KEY,
			market_id    INTEGER NOT NULL REFERENCES markets(id),
			symbol       TEXT NOT NULL,
			name         TEXT NOT NULL,
			currency     TEXT NOT NULL DEFAULT 'TRY',
			yahoo_symbol TEXT,
			UNIQUE (market_id, symbol)
		);

		INSERT INTO markets (id, code) VALUES (1, 'BIST'), (2, 'US'), (3, 'COMMODITY');
		INSERT INTO assets (id, market_id, symbol, name, currency, yahoo_symbol) VALUES
			(1, 2, 'AAPL', 'Apple Inc.', 'USD', 'AAPL'),
			(2, 1, 'THYAO', 'Turk Hava Yollari', 'TRY', 'THYAO.IS'),
			(3, 3, 'XAU', 'Gold Ounce', 'USD', NULL);
	`)
	require.NoError(t, err)

	return db
}

func testAssetRepo(t *testing.T) (*AssetRepository, *sql.DB) {
	db := setupTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewAssetRepository(db, log), db
}

func TestGetAll_OrderedByMarketThenSymbol(t *testing.T) {
	repo, db := testAssetRepo(t)
	defer db.Close()

	assets, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, assets, 3)

	assert.Equal(t, "THYAO", assets[0].Symbol)
	assert.Equal(t, "XAU", assets[1].Symbol)
	assert.Equal(t, "AAPL", assets[2].Symbol)
}

func TestGetByID(t *testing.T) {
	repo, db := testAssetRepo(t)
	defer db.Close()

	asset, err := repo.GetByID(1)
	require.NoError(t, err)
	require.NotNil(t, asset)

	assert.Equal(t, domain.MarketUS, asset.Market)
	assert.Equal(t, "AAPL", asset.YahooSymbol)
	assert.True(t, asset.Tradable())
}

func TestGetByID_NilWhenAbsent(t *testing.T) {
	repo, db := testAssetRepo(t)
	defer db.Close()

	asset, err := repo.GetByID(999)
	require.NoError(t, err)
	assert.Nil(t, asset)
}

func TestGetByID_NullQuoteSymbol(t *testing.T) {
	repo, db := testAssetRepo(t)
	defer db.Close()

	asset, err := repo.GetByID(3)
	require.NoError(t, err)
	require.NotNil(t, asset)

	assert.Empty(t, asset.YahooSymbol)
	assert.False(t, asset.Tradable())
}

func TestGetByIDs_SkipsUnknownIDs(t *testing.T) {
	repo, db := testAssetRepo(t)
	defer db.Close()

	assets, err := repo.GetByIDs([]int64{2, 999, 1})
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, int64(1), assets[0].ID)
	assert.Equal(t, int64(2), assets[1].ID)
}

func TestGetByIDs_EmptyInput(t *testing.T) {
	repo, db := testAssetRepo(t)
	defer db.Close()

	assets, err := repo.GetByIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestGetMarkets(t *testing.T) {
	repo, db := testAssetRepo(t)
	defer db.Close()

	markets, err := repo.GetMarkets()
	require.NoError(t, err)
	assert.Equal(t, []domain.Market{domain.MarketBIST, domain.MarketCommodity, domain.MarketUS}, markets)
}
