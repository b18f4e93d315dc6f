// Package oracle fetches the reference price from a Binance-compatible ticker
// endpoint and keeps the last observation in the price cache.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/priceduel/priceduel/internal/domain"
)

// Feed polls the ticker endpoint and writes each successful observation into
// the price cache. A failed poll leaves the cached value untouched and backs
// off before retrying.
type Feed struct {
	baseURL    string
	symbol     string
	cache      domain.PriceCache
	httpClient *http.Client
	refresh    time.Duration
	backoff    time.Duration
	logger     *slog.Logger
}

// NewFeed creates a Feed polling baseURL for symbol every refresh interval,
// waiting backoff after a failed poll instead.
func NewFeed(baseURL, symbol string, cache domain.PriceCache, refresh, backoff time.Duration, logger *slog.Logger) *Feed {
	return &Feed{
		baseURL: baseURL,
		symbol:  symbol,
		cache:   cache,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		refresh: refresh,
		backoff: backoff,
		logger:  logger,
	}
}

// tickerResponse mirrors the Binance /api/v3/ticker/price payload. The price
// arrives as a JSON string.
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Refresh fetches the current ticker price once and stores the truncated
// value in the cache.
func (f *Feed) Refresh(ctx context.Context) error {
	params := url.Values{}
	params.Set("symbol", f.symbol)

	reqURL := f.baseURL + "/api/v3/ticker/price?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("oracle: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("oracle: fetch ticker: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("oracle: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oracle: ticker status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var ticker tickerResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		return fmt.Errorf("oracle: decode ticker: %w", err)
	}
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return fmt.Errorf("oracle: parse price %q: %w", ticker.Price, err)
	}
	if price <= 0 {
		return fmt.Errorf("oracle: non-positive price %v for %s", price, f.symbol)
	}

	price = domain.Truncate(price)
	if err := f.cache.SetPrice(ctx, f.symbol, price); err != nil {
		return fmt.Errorf("oracle: cache price: %w", err)
	}

	f.logger.DebugContext(ctx, "price refreshed",
		slog.String("symbol", f.symbol),
		slog.Float64("price", price),
	)
	return nil
}

// Run polls until ctx is cancelled. Failures are logged and retried after the
// backoff interval.
func (f *Feed) Run(ctx context.Context) error {
	for {
		wait := f.refresh
		if err := f.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.ErrorContext(ctx, "price refresh failed",
				slog.String("symbol", f.symbol),
				slog.String("error", err.Error()),
			)
			wait = f.backoff
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func truncateBody(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
