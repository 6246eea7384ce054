package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozank/portfoy/internal/domain"
	"github.com/ozank/portfoy/internal/events"
)

type fakeQuoteClient struct {
	prices map[string]float64
	calls  int
}

func (f *fakeQuoteClient) FetchCurrentPrice(ctx context.Context, asset domain.Asset) (float64, error) {
	f.calls++
	price, ok := f.prices[asset.YahooSymbol]
	if !ok {
		return 0, errors.New("provider unavailable")
	}
	return price, nil
}

type fakeAssetSource struct {
	assets []domain.Asset
}

func (f *fakeAssetSource) GetByIDs(ids []int64) ([]domain.Asset, error) {
	var out []domain.Asset
	for _, id := range ids {
		for _, a := range f.assets {
			if a.ID == id {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (f *fakeAssetSource) GetAll() ([]domain.Asset, error) {
	return f.assets, nil
}

type fakeHeldSource struct {
	ids []int64
}

func (f *fakeHeldSource) HeldAssetIDs(userID int64) ([]int64, error) {
	return f.ids, nil
}

func testRefreshService(t *testing.T, quotes *fakeQuoteClient, assets *fakeAssetSource, held *fakeHeldSource) (*RefreshService, *HistoryRepository, *events.Bus, func()) {
	repo, db := testHistoryRepo(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	svc := NewRefreshService(quotes, assets, held, repo, bus, log)
	return svc, repo, bus, func() { db.Close() }
}

func TestRefreshHeldAssets_CountsSuccessesAndFailures(t *testing.T) {
	quotes := &fakeQuoteClient{prices: map[string]float64{
		"THYAO.IS": 300,
		"AAPL":     150,
	}}
	assets := &fakeAssetSource{assets: []domain.Asset{
		{ID: 1, Symbol: "THYAO", YahooSymbol: "THYAO.IS"},
		{ID: 2, Symbol: "AAPL", YahooSymbol: "AAPL"},
		{ID: 3, Symbol: "XAU", YahooSymbol: "GC=F"}, // not in the fake provider
	}}
	held := &fakeHeldSource{ids: []int64{1, 2, 3}}

	svc, repo, _, cleanup := testRefreshService(t, quotes, assets, held)
	defer cleanup()

	result, err := svc.RefreshHeldAssets(context.Background(), 1, false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.NotEmpty(t, result.RunID)

	// Successful quotes were persisted, the failure left no row
	quote, err := repo.Latest(1)
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.Equal(t, 300.0, quote.Price)

	quote, err = repo.Latest(3)
	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestRefreshHeldAssets_NoHoldingsSkipsProvider(t *testing.T) {
	quotes := &fakeQuoteClient{prices: map[string]float64{}}
	svc, _, _, cleanup := testRefreshService(t, quotes, &fakeAssetSource{}, &fakeHeldSource{})
	defer cleanup()

	result, err := svc.RefreshHeldAssets(context.Background(), 1, true)
	require.NoError(t, err)

	assert.Zero(t, result.Succeeded)
	assert.Zero(t, result.Failed)
	assert.Zero(t, quotes.calls)
}

func TestRefreshHeldAssets_PublishesCompletionEvent(t *testing.T) {
	quotes := &fakeQuoteClient{prices: map[string]float64{"AAPL": 150}}
	assets := &fakeAssetSource{assets: []domain.Asset{{ID: 2, Symbol: "AAPL", YahooSymbol: "AAPL"}}}
	held := &fakeHeldSource{ids: []int64{2}}

	svc, _, bus, cleanup := testRefreshService(t, quotes, assets, held)
	defer cleanup()

	var got *events.Event
	bus.Subscribe(func(e *events.Event) {
		if e.Type == events.PricesRefreshed {
			got = e
		}
	})

	_, err := svc.RefreshHeldAssets(context.Background(), 42, true)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "pricing", got.Module)
	assert.Equal(t, int64(42), got.Data["user_id"])
	assert.Equal(t, 1, got.Data["succeeded"])
	assert.Equal(t, true, got.Data["automatic"])
}

func TestRefreshAssets_CancelledContextCountsRemainderAsFailures(t *testing.T) {
	quotes := &fakeQuoteClient{prices: map[string]float64{"AAPL": 150}}
	assets := &fakeAssetSource{assets: []domain.Asset{
		{ID: 1, Symbol: "AAPL", YahooSymbol: "AAPL"},
		{ID: 2, Symbol: "MSFT", YahooSymbol: "MSFT"},
	}}
	held := &fakeHeldSource{ids: []int64{1, 2}}

	svc, _, _, cleanup := testRefreshService(t, quotes, assets, held)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.RefreshHeldAssets(ctx, 1, false)
	require.NoError(t, err)
	assert.Zero(t, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Zero(t, quotes.calls)
}

func TestRefreshCatalog_CoversEveryAsset(t *testing.T) {
	quotes := &fakeQuoteClient{prices: map[string]float64{
		"THYAO.IS": 300,
		"AAPL":     150,
	}}
	assets := &fakeAssetSource{assets: []domain.Asset{
		{ID: 1, Symbol: "THYAO", YahooSymbol: "THYAO.IS"},
		{ID: 2, Symbol: "AAPL", YahooSymbol: "AAPL"},
	}}

	svc, repo, _, cleanup := testRefreshService(t, quotes, assets, &fakeHeldSource{})
	defer cleanup()

	result, err := svc.RefreshCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Zero(t, result.Failed)

	latest, err := repo.LatestByAsset()
	require.NoError(t, err)
	assert.Len(t, latest, 2)
}
