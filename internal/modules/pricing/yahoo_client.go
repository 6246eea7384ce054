// Package pricing provides the quote source adapter, the price history
// cache and the refresh orchestration on top of them.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/domain"
)

// YahooClient fetches current prices from the Yahoo Finance chart endpoint.
// One request per asset; every failure is scoped to that asset and never
// retried here (the orchestrator decides what a failure means for the batch).
type YahooClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewYahooClient creates a new Yahoo Finance client. The timeout bounds each
// request so one unreachable provider cannot stall a refresh batch.
func NewYahooClient(timeout time.Duration, log zerolog.Logger) *YahooClient {
	return &YahooClient{
		baseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// chartResponse mirrors the slice of the v8 chart payload we consume
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

// FetchCurrentPrice returns the current market price for one asset.
// Assets without a quote symbol cannot be auto-priced and fail immediately.
func (c *YahooClient) FetchCurrentPrice(ctx context.Context, asset domain.Asset) (float64, error) {
	if asset.YahooSymbol == "" {
		return 0, fmt.Errorf("asset %d (%s) has no quote symbol", asset.ID, asset.Symbol)
	}

	reqURL := fmt.Sprintf("%s/%s?interval=1m&range=1d", c.baseURL, url.PathEscape(asset.YahooSymbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build quote request: %w", err)
	}
	// The chart endpoint rejects requests without browser-ish headers
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://finance.yahoo.com/")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("quote request failed for %s: %w", asset.YahooSymbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("quote provider returned status %d for %s", resp.StatusCode, asset.YahooSymbol)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to parse quote response for %s: %w", asset.YahooSymbol, err)
	}

	if len(payload.Chart.Result) == 0 {
		return 0, fmt.Errorf("empty chart result for %s", asset.YahooSymbol)
	}
	price := payload.Chart.Result[0].Meta.RegularMarketPrice
	if price == nil {
		return 0, fmt.Errorf("no regular market price for %s", asset.YahooSymbol)
	}

	c.log.Debug().
		Str("symbol", asset.YahooSymbol).
		Float64("price", *price).
		Msg("Fetched quote")

	return *price, nil
}
