package external

import (
	"context"
	"time"

	"github.com/kjannette/nordfolio-backend/internal/models"
	"golang.org/x/time/rate"
)

// PerMinute allows n calls per minute with a burst of one.
func PerMinute(n int) *rate.Limiter {
	if n <= 0 {
		n = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}

// RateLimited gates a provider behind a limiter. Waiting gives up as soon as
// ctx is done or its deadline cannot be met.
type RateLimited struct {
	P Provider
	L *rate.Limiter
}

func NewRateLimited(p Provider, l *rate.Limiter) *RateLimited {
	return &RateLimited{P: p, L: l}
}

func (r *RateLimited) Name() string { return r.P.Name() }

func (r *RateLimited) FetchQuote(ctx context.Context, symbol string, assetType models.AssetType) (*models.Quote, error) {
	if r.L != nil {
		if err := r.L.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return r.P.FetchQuote(ctx, symbol, assetType)
}
