package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozank/portfoy/internal/domain"
)

func testYahooClient(baseURL string) *YahooClient {
	c := NewYahooClient(2*time.Second, zerolog.New(nil).Level(zerolog.Disabled))
	c.baseURL = baseURL
	return c
}

func TestFetchCurrentPrice_ParsesChartPayload(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":312.5}}]}}`))
	}))
	defer srv.Close()

	client := testYahooClient(srv.URL)
	price, err := client.FetchCurrentPrice(context.Background(), domain.Asset{ID: 1, Symbol: "THYAO", YahooSymbol: "THYAO.IS"})
	require.NoError(t, err)

	assert.Equal(t, 312.5, price)
	assert.Equal(t, "/THYAO.IS", gotPath)
	assert.Equal(t, "Mozilla/5.0", gotUA)
}

func TestFetchCurrentPrice_FailsWithoutQuoteSymbol(t *testing.T) {
	client := testYahooClient("http://unused")

	_, err := client.FetchCurrentPrice(context.Background(), domain.Asset{ID: 7, Symbol: "GOLD"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no quote symbol")
}

func TestFetchCurrentPrice_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := testYahooClient(srv.URL)
	_, err := client.FetchCurrentPrice(context.Background(), domain.Asset{ID: 1, YahooSymbol: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestFetchCurrentPrice_MissingPriceField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"meta":{}}]}}`))
	}))
	defer srv.Close()

	client := testYahooClient(srv.URL)
	_, err := client.FetchCurrentPrice(context.Background(), domain.Asset{ID: 1, YahooSymbol: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no regular market price")
}

func TestFetchCurrentPrice_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[]}}`))
	}))
	defer srv.Close()

	client := testYahooClient(srv.URL)
	_, err := client.FetchCurrentPrice(context.Background(), domain.Asset{ID: 1, YahooSymbol: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty chart result")
}
