package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type recorded struct {
	assetID int64
	quote   models.Quote
	ts      time.Time
}

// memStore keeps holdings in memory and values portfolios from them.
type memStore struct {
	mu        sync.Mutex
	assets    []models.Asset
	records   []recorded
	recordErr error
	loadErr   error
}

func (m *memStore) SymbolHoldings(_ context.Context, _ string) ([]models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]models.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		if a.Refreshable() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) RecordQuote(_ context.Context, assetID int64, q models.Quote, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	for i := range m.assets {
		if m.assets[i].ID == assetID {
			m.assets[i].CurrentPrice = decimal.NewNullDecimal(q.Price)
			m.assets[i].LastUpdated = ts
		}
	}
	m.records = append(m.records, recorded{assetID: assetID, quote: q, ts: ts})
	return nil
}

func (m *memStore) PortfolioSummaries(_ context.Context, _ string) ([]models.PortfolioSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, a := range m.assets {
		if a.CurrentPrice.Valid {
			total = total.Add(a.CurrentPrice.Decimal.Mul(a.Quantity))
		}
	}
	return []models.PortfolioSummary{{
		Portfolio:  models.Portfolio{ID: 1, UserID: "u1", Name: "Main"},
		AssetCount: int64(len(m.assets)),
		TotalValue: total,
	}}, nil
}

func (m *memStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type mockPricer struct {
	mock.Mock
}

func (m *mockPricer) GetBatchPrices(ctx context.Context, reqs []models.PriceRequest) []models.Quote {
	args := m.Called(ctx, reqs)
	return args.Get(0).([]models.Quote)
}

func holding(id int64, symbol string, price string, qty int64, updated time.Time) models.Asset {
	s := symbol
	return models.Asset{
		ID:           id,
		PortfolioID:  1,
		Name:         symbol,
		Symbol:       &s,
		AssetType:    models.AssetStock,
		Currency:     "NOK",
		CurrentPrice: decimal.NewNullDecimal(decimal.RequireFromString(price)),
		Quantity:     decimal.NewFromInt(qty),
		LastUpdated:  updated,
	}
}

func fixedClock(ts time.Time) func() time.Time { return func() time.Time { return ts } }

func TestTick_RefreshesOnlyStaleHoldings(t *testing.T) {
	store := &memStore{assets: []models.Asset{
		holding(1, "AAPL", "150", 10, t0.Add(-5*time.Minute)),
		holding(2, "TSLA", "200", 2, t0.Add(-30*time.Second)),
	}}
	pricer := &mockPricer{}
	pricer.On("GetBatchPrices", mock.Anything, []models.PriceRequest{{Symbol: "AAPL", AssetType: models.AssetStock}}).
		Return([]models.Quote{{Symbol: "AAPL", Price: decimal.NewFromInt(160), Currency: "USD", Source: "yahoo_finance"}}).
		Once()

	r := NewRefresher(store, pricer, RefresherConfig{StaleWindow: time.Minute, Now: fixedClock(t0)}, zerolog.Nop())
	snap, err := r.Tick(context.Background(), "u1")
	require.NoError(t, err)

	pricer.AssertExpectations(t)
	assert.True(t, snap.PricesUpdated)
	assert.Equal(t, []string{"AAPL"}, snap.Refreshed)
	require.Len(t, snap.Portfolios, 1)
	// 10 x 160 + 2 x 200
	assert.True(t, snap.Portfolios[0].TotalValue.Equal(decimal.NewFromInt(2000)), snap.Portfolios[0].TotalValue.String())

	require.Equal(t, 1, store.recordCount())
	assert.Equal(t, int64(1), store.records[0].assetID)
	assert.Equal(t, t0, store.records[0].ts)
}

func TestTick_StalenessIsStrict(t *testing.T) {
	store := &memStore{assets: []models.Asset{
		holding(1, "EQNR", "280", 1, t0.Add(-time.Minute)),
	}}
	pricer := &mockPricer{}
	r := NewRefresher(store, pricer, RefresherConfig{StaleWindow: time.Minute, Now: fixedClock(t0)}, zerolog.Nop())

	snap, err := r.Tick(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, snap.PricesUpdated, "a holding exactly at the window is still fresh")
	assert.Empty(t, snap.Refreshed)
	pricer.AssertNotCalled(t, "GetBatchPrices", mock.Anything, mock.Anything)
}

func TestTick_NoStaleHoldings(t *testing.T) {
	store := &memStore{assets: []models.Asset{
		holding(1, "DNB", "210", 3, t0),
	}}
	pricer := &mockPricer{}
	r := NewRefresher(store, pricer, RefresherConfig{StaleWindow: time.Minute, Now: fixedClock(t0)}, zerolog.Nop())

	snap, err := r.Tick(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, snap.PricesUpdated)
	assert.NotNil(t, snap.Portfolios)
	assert.True(t, snap.Portfolios[0].TotalValue.Equal(decimal.NewFromInt(630)))
	assert.Zero(t, store.recordCount())
}

func TestTick_FailedLookupLeavesValuationUnchanged(t *testing.T) {
	store := &memStore{assets: []models.Asset{
		holding(1, "XYZ", "50", 4, t0.Add(-time.Hour)),
	}}
	pricer := &mockPricer{}
	pricer.On("GetBatchPrices", mock.Anything, mock.Anything).Return([]models.Quote{})

	r := NewRefresher(store, pricer, RefresherConfig{StaleWindow: time.Minute, Now: fixedClock(t0)}, zerolog.Nop())
	snap, err := r.Tick(context.Background(), "u1")
	require.NoError(t, err)

	assert.False(t, snap.PricesUpdated)
	assert.True(t, snap.Portfolios[0].TotalValue.Equal(decimal.NewFromInt(200)))
	assert.Zero(t, store.recordCount())
}

func TestTick_SharedSymbolUpdatesEveryHolding(t *testing.T) {
	store := &memStore{assets: []models.Asset{
		holding(1, "EQNR", "280", 1, t0.Add(-time.Hour)),
		holding(2, "EQNR", "280", 2, t0.Add(-time.Hour)),
	}}
	pricer := &mockPricer{}
	pricer.On("GetBatchPrices", mock.Anything, []models.PriceRequest{{Symbol: "EQNR", AssetType: models.AssetStock}}).
		Return([]models.Quote{{Symbol: "EQNR", Price: decimal.NewFromInt(300), Currency: "NOK"}})

	r := NewRefresher(store, pricer, RefresherConfig{StaleWindow: time.Minute, Now: fixedClock(t0)}, zerolog.Nop())
	snap, err := r.Tick(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, []string{"EQNR"}, snap.Refreshed)
	assert.Equal(t, 2, store.recordCount(), "one history row per holding")
}

func TestTick_PersistenceError(t *testing.T) {
	store := &memStore{
		assets:    []models.Asset{holding(1, "AAPL", "150", 1, t0.Add(-time.Hour))},
		recordErr: errors.New("connection reset"),
	}
	pricer := &mockPricer{}
	pricer.On("GetBatchPrices", mock.Anything, mock.Anything).
		Return([]models.Quote{{Symbol: "AAPL", Price: decimal.NewFromInt(1)}})

	r := NewRefresher(store, pricer, RefresherConfig{StaleWindow: time.Minute, Now: fixedClock(t0)}, zerolog.Nop())
	_, err := r.Tick(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestTick_RecoversPanic(t *testing.T) {
	store := &memStore{assets: []models.Asset{holding(1, "AAPL", "150", 1, t0.Add(-time.Hour))}}
	pricer := &mockPricer{}
	pricer.On("GetBatchPrices", mock.Anything, mock.Anything).Panic("pricer exploded")

	r := NewRefresher(store, pricer, RefresherConfig{StaleWindow: time.Minute, Now: fixedClock(t0)}, zerolog.Nop())
	snap, err := r.Tick(context.Background(), "u1")
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.Contains(t, err.Error(), "panicked")
}

func TestTick_MatchesPaddedStoredSymbol(t *testing.T) {
	store := &memStore{assets: []models.Asset{
		holding(1, " AAPL ", "150", 1, t0.Add(-time.Hour)),
	}}
	pricer := &mockPricer{}
	pricer.On("GetBatchPrices", mock.Anything, []models.PriceRequest{{Symbol: "AAPL", AssetType: models.AssetStock}}).
		Return([]models.Quote{{Symbol: "AAPL", Price: decimal.NewFromInt(170)}}).
		Once()

	r := NewRefresher(store, pricer, RefresherConfig{StaleWindow: time.Minute, Now: fixedClock(t0)}, zerolog.Nop())
	snap, err := r.Tick(context.Background(), "u1")
	require.NoError(t, err)

	pricer.AssertExpectations(t)
	assert.True(t, snap.PricesUpdated)
	assert.Equal(t, []string{"AAPL"}, snap.Refreshed)
	require.Equal(t, 1, store.recordCount())
	assert.Equal(t, t0, store.assets[0].LastUpdated, "holding is no longer stale")
}
