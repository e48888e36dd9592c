// Package pricing resolves quotes for holdings by walking an ordered chain
// of providers per asset class. It never touches persistence.
package pricing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kjannette/nordfolio-backend/internal/external"
	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// IsISIN reports whether symbol has the shape of an ISIN.
func IsISIN(symbol string) bool {
	return isinPattern.MatchString(symbol)
}

type Config struct {
	// LookupTimeout bounds each individual provider call.
	LookupTimeout  time.Duration
	MaxConcurrency int
}

func DefaultConfig() Config {
	return Config{LookupTimeout: 10 * time.Second, MaxConcurrency: 8}
}

type Service struct {
	cfg    Config
	equity []external.Provider
	funds  []external.Provider
	log    zerolog.Logger
}

// NewService builds the aggregator. equity and funds are tried in order.
func NewService(cfg Config, equity, funds []external.Provider, log zerolog.Logger) *Service {
	def := DefaultConfig()
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = def.LookupTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	return &Service{cfg: cfg, equity: equity, funds: funds, log: log}
}

func (s *Service) chainFor(symbol string, assetType models.AssetType) []external.Provider {
	switch assetType {
	case models.AssetFund:
		if IsISIN(symbol) {
			return s.funds
		}
		return s.equity
	case models.AssetStock:
		return s.equity
	default:
		return nil
	}
}

// GetPrice returns the first successful quote from the chain for assetType.
// The boolean is false when every provider failed or the asset class has
// no chain at all.
func (s *Service) GetPrice(ctx context.Context, symbol string, assetType models.AssetType) (*models.Quote, bool) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, false
	}

	chain := s.chainFor(symbol, assetType)
	if len(chain) == 0 {
		s.log.Debug().Str("symbol", symbol).Str("asset_type", string(assetType)).Msg("no provider chain for asset type")
		return nil, false
	}

	for _, p := range chain {
		if ctx.Err() != nil {
			return nil, false
		}
		q, err := s.lookup(ctx, p, symbol, assetType)
		if err != nil {
			s.log.Warn().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("provider lookup failed")
			continue
		}
		q.Symbol = symbol
		return q, true
	}
	return nil, false
}

// lookup runs one provider call under its own timeout. A panic inside the
// adapter is turned into an error.
func (s *Service) lookup(ctx context.Context, p external.Provider, symbol string, assetType models.AssetType) (q *models.Quote, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q, err = nil, fmt.Errorf("provider %s panicked: %v", p.Name(), r)
		}
	}()

	q, err = p.FetchQuote(ctx, symbol, assetType)
	if err == nil && q == nil {
		err = fmt.Errorf("provider %s: %w", p.Name(), external.ErrNoQuote)
	}
	return q, err
}

// GetBatchPrices prices every distinct (symbol, assetType) in reqs
// concurrently. Failed lookups are omitted; successes keep request order.
func (s *Service) GetBatchPrices(ctx context.Context, reqs []models.PriceRequest) []models.Quote {
	unique := make([]models.PriceRequest, 0, len(reqs))
	seen := make(map[models.PriceRequest]struct{}, len(reqs))
	for _, r := range reqs {
		r.Symbol = strings.TrimSpace(r.Symbol)
		if r.Symbol == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		unique = append(unique, r)
	}

	results := make([]*models.Quote, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, r := range unique {
		g.Go(func() error {
			if q, ok := s.GetPrice(gctx, r.Symbol, r.AssetType); ok {
				results[i] = q
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.Quote, 0, len(unique))
	emitted := make(map[string]struct{}, len(unique))
	for i, q := range results {
		if q == nil {
			s.log.Info().Str("symbol", unique[i].Symbol).Msg("no price available")
			continue
		}
		if _, dup := emitted[q.Symbol]; dup {
			continue
		}
		emitted[q.Symbol] = struct{}{}
		out = append(out, *q)
	}
	return out
}
