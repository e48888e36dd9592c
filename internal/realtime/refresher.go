package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/rs/zerolog"
)

// Store is the persistence the refresh loop depends on.
type Store interface {
	SymbolHoldings(ctx context.Context, userID string) ([]models.Asset, error)
	RecordQuote(ctx context.Context, assetID int64, q models.Quote, ts time.Time) error
	PortfolioSummaries(ctx context.Context, userID string) ([]models.PortfolioSummary, error)
}

type Pricer interface {
	GetBatchPrices(ctx context.Context, reqs []models.PriceRequest) []models.Quote
}

type RefresherConfig struct {
	// StaleWindow is how old a price may get before it is refetched.
	StaleWindow time.Duration
	Now         func() time.Time
}

// Refresher implements one refresh tick for one user.
type Refresher struct {
	store  Store
	pricer Pricer
	cfg    RefresherConfig
	log    zerolog.Logger
}

func NewRefresher(store Store, pricer Pricer, cfg RefresherConfig, log zerolog.Logger) *Refresher {
	if cfg.StaleWindow < 0 {
		cfg.StaleWindow = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Refresher{store: store, pricer: pricer, cfg: cfg, log: log}
}

// Snapshot reads the user's current valuation without fetching prices.
func (r *Refresher) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	portfolios, err := r.store.PortfolioSummaries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load portfolios: %w", err)
	}
	if portfolios == nil {
		portfolios = []models.PortfolioSummary{}
	}
	return &Snapshot{Portfolios: portfolios, Refreshed: []string{}}, nil
}

// Tick refetches prices for the user's stale holdings, persists them and
// returns the resulting snapshot.
func (r *Refresher) Tick(ctx context.Context, userID string) (snap *Snapshot, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			snap, err = nil, fmt.Errorf("refresh tick panicked: %v", rec)
		}
	}()

	holdings, err := r.store.SymbolHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}

	now := r.cfg.Now()
	stale := make([]models.Asset, 0, len(holdings))
	for _, a := range holdings {
		if a.Refreshable() && holdingSymbol(a) != "" && now.Sub(a.LastUpdated) > r.cfg.StaleWindow {
			stale = append(stale, a)
		}
	}

	var refreshed []string
	if len(stale) > 0 {
		refreshed, err = r.refresh(ctx, stale)
		if err != nil {
			return nil, err
		}
	}

	snap, err = r.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(refreshed) > 0 {
		snap.PricesUpdated = true
		snap.Refreshed = refreshed
	}
	return snap, nil
}

func (r *Refresher) refresh(ctx context.Context, stale []models.Asset) ([]string, error) {
	reqs := make([]models.PriceRequest, 0, len(stale))
	seen := make(map[models.PriceRequest]struct{}, len(stale))
	for _, a := range stale {
		req := models.PriceRequest{Symbol: holdingSymbol(a), AssetType: a.AssetType}
		if _, ok := seen[req]; ok {
			continue
		}
		seen[req] = struct{}{}
		reqs = append(reqs, req)
	}

	quotes := r.pricer.GetBatchPrices(ctx, reqs)
	if len(quotes) == 0 {
		r.log.Debug().Int("requested", len(reqs)).Msg("no prices returned")
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bySymbol := make(map[string]models.Quote, len(quotes))
	for _, q := range quotes {
		bySymbol[q.Symbol] = q
	}

	fetchedAt := r.cfg.Now()
	var refreshed []string
	updated := make(map[string]bool, len(quotes))
	for _, a := range stale {
		q, ok := bySymbol[holdingSymbol(a)]
		if !ok {
			continue
		}
		if err := r.store.RecordQuote(ctx, a.ID, q, fetchedAt); err != nil {
			return nil, fmt.Errorf("persist price for %s: %w", q.Symbol, err)
		}
		if !updated[q.Symbol] {
			updated[q.Symbol] = true
			refreshed = append(refreshed, q.Symbol)
		}
	}

	r.log.Info().Int("stale", len(stale)).Strs("refreshed", refreshed).Msg("prices refreshed")
	return refreshed, nil
}

// holdingSymbol is the symbol sent to the pricer and matched against its
// quotes. The pricer trims what it is given, so both sides trim.
func holdingSymbol(a models.Asset) string {
	return strings.TrimSpace(*a.Symbol)
}
