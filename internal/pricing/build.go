package pricing

import (
	"github.com/kjannette/nordfolio-backend/internal/config"
	"github.com/kjannette/nordfolio-backend/internal/external"
	"github.com/kjannette/nordfolio-backend/internal/httputil"
	"github.com/kjannette/nordfolio-backend/internal/logging"
	"github.com/rs/zerolog"
)

// NewFromConfig wires the provider chains from configuration:
// equity = Yahoo Finance, then Alpha Vantage when a key is set;
// funds = the Norwegian fund source only, since equity APIs do not resolve ISINs.
// log is the root logger; component tags are added here.
func NewFromConfig(cfg *config.Config, log zerolog.Logger) *Service {
	extLog := logging.Component(log, "external")
	client := httputil.NewClient(cfg.ProviderTimeout())
	ttl := cfg.QuoteCacheTTL()

	equity := []external.Provider{
		external.NewCached(external.NewYahooFinance(client, cfg.YahooBaseURL), ttl),
	}
	if cfg.AlphaVantageAPIKey != "" {
		av := external.NewAlphaVantage(client, cfg.AlphaVantageBaseURL, cfg.AlphaVantageAPIKey)
		limited := external.NewRateLimited(av, external.PerMinute(cfg.AlphaVantageMaxRPM))
		equity = append(equity, external.NewCached(limited, ttl))
	}

	funds := []external.Provider{
		external.NewCached(external.NewNorwegianFunds(client, cfg.FundPriceURL, external.FundPathConfig{
			PricePath:    cfg.FundPricePath,
			ChangePath:   cfg.FundChangePath,
			CurrencyPath: cfg.FundCurrencyPath,
		}), ttl),
	}

	names := make([]string, 0, len(equity))
	for _, p := range equity {
		names = append(names, p.Name())
	}
	extLog.Info().Strs("equity_chain", names).Int("fund_chain_len", len(funds)).Msg("price providers configured")

	return NewService(Config{
		LookupTimeout:  cfg.ProviderTimeout(),
		MaxConcurrency: cfg.BatchConcurrency,
	}, equity, funds, logging.Component(log, "pricing"))
}
