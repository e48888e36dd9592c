package external

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type countingProvider struct {
	calls atomic.Int32
	err   error
}

func (c *countingProvider) Name() string { return "counting" }

func (c *countingProvider) FetchQuote(_ context.Context, symbol string, _ models.AssetType) (*models.Quote, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &models.Quote{Symbol: symbol, Price: decimal.NewFromInt(1), Source: "counting"}, nil
}

func TestCached_ServesWithinTTL(t *testing.T) {
	inner := &countingProvider{}
	c := NewCached(inner, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		q, err := c.FetchQuote(context.Background(), "EQNR", models.AssetStock)
		require.NoError(t, err)
		assert.Equal(t, "EQNR", q.Symbol)
	}
	assert.Equal(t, int32(1), inner.calls.Load())

	// different asset type is a different key
	_, _ = c.FetchQuote(context.Background(), "EQNR", models.AssetFund)
	assert.Equal(t, int32(2), inner.calls.Load())

	time.Sleep(80 * time.Millisecond)
	_, _ = c.FetchQuote(context.Background(), "EQNR", models.AssetStock)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	inner := &countingProvider{err: errors.New("boom")}
	c := NewCached(inner, time.Minute)

	_, err := c.FetchQuote(context.Background(), "EQNR", models.AssetStock)
	require.Error(t, err)
	_, err = c.FetchQuote(context.Background(), "EQNR", models.AssetStock)
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCached_ZeroTTLDisables(t *testing.T) {
	inner := &countingProvider{}
	c := NewCached(inner, 0)
	_, _ = c.FetchQuote(context.Background(), "DNB", models.AssetStock)
	_, _ = c.FetchQuote(context.Background(), "DNB", models.AssetStock)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestRateLimited_HonorsContext(t *testing.T) {
	inner := &countingProvider{}
	rl := NewRateLimited(inner, PerMinute(1))

	_, err := rl.FetchQuote(context.Background(), "AAPL", models.AssetStock)
	require.NoError(t, err, "first call uses the initial burst")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = rl.FetchQuote(ctx, "AAPL", models.AssetStock)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestRateLimited_SpacesCalls(t *testing.T) {
	inner := &countingProvider{}
	rl := NewRateLimited(inner, rate.NewLimiter(rate.Every(10*time.Millisecond), 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := rl.FetchQuote(context.Background(), "AAPL", models.AssetStock)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	assert.Equal(t, int32(3), inner.calls.Load())
}
