package external

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/kjannette/nordfolio-backend/internal/models"
)

type cacheKey struct {
	symbol    string
	assetType models.AssetType
}

// Cached keeps successful quotes per (symbol, assetType) for TTL.
// Failures are passed through and never stored. A TTL <= 0 disables it.
type Cached struct {
	P   Provider
	TTL time.Duration

	items *ttlcache.Cache[cacheKey, models.Quote]
}

func NewCached(p Provider, ttl time.Duration) *Cached {
	c := &Cached{P: p, TTL: ttl}
	if ttl > 0 {
		c.items = ttlcache.New[cacheKey, models.Quote](
			ttlcache.WithTTL[cacheKey, models.Quote](ttl),
			ttlcache.WithDisableTouchOnHit[cacheKey, models.Quote](),
		)
	}
	return c
}

func (c *Cached) Name() string { return c.P.Name() }

func (c *Cached) FetchQuote(ctx context.Context, symbol string, assetType models.AssetType) (*models.Quote, error) {
	if c.items == nil {
		return c.P.FetchQuote(ctx, symbol, assetType)
	}

	key := cacheKey{symbol: symbol, assetType: assetType}
	if item := c.items.Get(key); item != nil && !item.IsExpired() {
		q := item.Value()
		return &q, nil
	}

	q, err := c.P.FetchQuote(ctx, symbol, assetType)
	if err != nil {
		return nil, err
	}

	c.items.Set(key, *q, ttlcache.DefaultTTL)
	// no janitor goroutine runs, so one-off symbols are dropped here
	c.items.DeleteExpired()
	return q, nil
}
