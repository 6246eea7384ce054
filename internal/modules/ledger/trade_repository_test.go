package ledger

import (
	"database/sql"
	"testing"
	"time"

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
		CREATE TABLE trades (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL,
			asset_id   INTEGER NOT NULL REFERENCES assets(id),
			trade_type TEXT NOT NULL CHECK (trade_type IN ('BUY', 'SELL')),
			quantity   REAL NOT NULL CHECK (quantity > 0),
			price      REAL NOT NULL CHECK (price > 0),
			trade_time TEXT NOT NULL
		);

		INSERT INTO markets (id, code) VALUES (1, 'BIST'), (2, 'US'), (3, 'CRYPTO');
		INSERT INTO assets (id, market_id, symbol, name, yahoo_symbol) VALUES
			(1, 1, 'THYAO', 'Turk Hava Yollari', 'THYAO.IS'),
			(2, 2, 'AAPL', 'Apple Inc.', 'AAPL'),
			(3, 3, 'BTC', 'Bitcoin', 'BTC-USD');
	`)
	require.NoError(t, err)

	return db
}

func testRepo(t *testing.T) (*TradeRepository, *sql.DB) {
	db := setupTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewTradeRepository(db, log), db
}

func mustInsert(t *testing.T, repo *TradeRepository, userID, assetID int64, side domain.TradeSide, qty, price float64) {
	t.Helper()
	_, err := repo.Insert(domain.Trade{
		UserID:     userID,
		AssetID:    assetID,
		Side:       side,
		Quantity:   qty,
		Price:      price,
		ExecutedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestAggregatePositions_AverageCostFromBuysOnly(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	// Two buys at different prices, one sell. The sell reduces quantity but
	// must not move the average.
	mustInsert(t, repo, 1, 2, domain.SideBuy, 10, 100)
	mustInsert(t, repo, 1, 2, domain.SideBuy, 10, 200)
	mustInsert(t, repo, 1, 2, domain.SideSell, 5, 500)

	positions, err := repo.AggregatePositions(1)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	assert.Equal(t, int64(2), positions[0].AssetID)
	assert.InDelta(t, 15.0, positions[0].NetQuantity, 1e-9)
	assert.InDelta(t, 150.0, positions[0].AverageCost, 1e-9)
}

func TestAggregatePositions_ExcludesClosedPositions(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	mustInsert(t, repo, 1, 1, domain.SideBuy, 10, 50)
	mustInsert(t, repo, 1, 1, domain.SideSell, 10, 60)
	mustInsert(t, repo, 1, 2, domain.SideBuy, 3, 100)

	positions, err := repo.AggregatePositions(1)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, int64(2), positions[0].AssetID)
}

func TestAggregatePositions_OrderedByMarketThenSymbol(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	mustInsert(t, repo, 1, 3, domain.SideBuy, 1, 40000)
	mustInsert(t, repo, 1, 2, domain.SideBuy, 2, 150)
	mustInsert(t, repo, 1, 1, domain.SideBuy, 100, 300)

	positions, err := repo.AggregatePositions(1)
	require.NoError(t, err)
	require.Len(t, positions, 3)

	assert.Equal(t, domain.MarketBIST, positions[0].Market)
	assert.Equal(t, domain.MarketCrypto, positions[1].Market)
	assert.Equal(t, domain.MarketUS, positions[2].Market)
}

func TestAggregatePositions_ScopedToUser(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	mustInsert(t, repo, 1, 1, domain.SideBuy, 10, 50)
	mustInsert(t, repo, 2, 2, domain.SideBuy, 5, 100)

	positions, err := repo.AggregatePositions(1)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, int64(1), positions[0].AssetID)
}

func TestNetQuantity(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	net, err := repo.NetQuantity(1, 1)
	require.NoError(t, err)
	assert.Zero(t, net)

	mustInsert(t, repo, 1, 1, domain.SideBuy, 10, 50)
	mustInsert(t, repo, 1, 1, domain.SideSell, 4, 55)

	net, err = repo.NetQuantity(1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, net, 1e-9)
}

func TestListByUser_NewestFirst(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := repo.Insert(domain.Trade{
			UserID:     1,
			AssetID:    1,
			Side:       domain.SideBuy,
			Quantity:   1,
			Price:      float64(100 + i),
			ExecutedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	trades, err := repo.ListByUser(1)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, 102.0, trades[0].Price)
	assert.Equal(t, 100.0, trades[2].Price)
}

func TestDeleteByUserAndAsset(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	mustInsert(t, repo, 1, 1, domain.SideBuy, 10, 50)
	mustInsert(t, repo, 1, 1, domain.SideSell, 2, 55)
	mustInsert(t, repo, 1, 2, domain.SideBuy, 5, 100)

	deleted, err := repo.DeleteByUserAndAsset(1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	positions, err := repo.AggregatePositions(1)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, int64(2), positions[0].AssetID)
}

func TestUserIDsWithTrades(t *testing.T) {
	repo, db := testRepo(t)
	defer db.Close()

	ids, err := repo.UserIDsWithTrades()
	require.NoError(t, err)
	assert.Empty(t, ids)

	mustInsert(t, repo, 3, 1, domain.SideBuy, 1, 10)
	mustInsert(t, repo, 1, 1, domain.SideBuy, 1, 10)
	mustInsert(t, repo, 1, 2, domain.SideBuy, 1, 10)

	ids, err = repo.UserIDsWithTrades()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
}
