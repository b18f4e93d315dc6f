package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/priceduel/priceduel/internal/domain"
)

// PriceCache stores the last known price per symbol. Values never expire so
// the most recent observation survives feed outages.
type PriceCache struct {
	client *Client
}

var _ domain.PriceCache = (*PriceCache)(nil)

func NewPriceCache(client *Client) *PriceCache {
	return &PriceCache{client: client}
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

// SetPrice records the latest price for symbol, overwriting any prior value.
func (c *PriceCache) SetPrice(ctx context.Context, symbol string, price float64) error {
	val := strconv.FormatFloat(price, 'f', -1, 64)
	if err := c.client.rdb.Set(ctx, priceKey(symbol), val, 0).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", symbol, err)
	}
	return nil
}

// GetPrice returns the last recorded price for symbol, or domain.ErrNotFound
// when no price has ever been recorded.
func (c *PriceCache) GetPrice(ctx context.Context, symbol string) (float64, error) {
	val, err := c.client.rdb.Get(ctx, priceKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse price %s: %w", symbol, err)
	}
	return price, nil
}
