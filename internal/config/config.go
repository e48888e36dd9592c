package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort         int
	CORSAllowOrigin string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DBHost        string
	DBPort        int
	DBName        string
	DBUser        string
	DBPassword    string
	DBAutoMigrate bool

	// Quote providers
	YahooBaseURL           string
	AlphaVantageAPIKey     string
	AlphaVantageBaseURL    string
	AlphaVantageMaxRPM     int
	FundPriceURL           string
	FundPricePath          string
	FundChangePath         string
	FundCurrencyPath       string
	ProviderTimeoutSeconds int
	QuoteCacheTTLSeconds   int

	// Aggregation
	BatchConcurrency int

	// Refresh loop
	RefreshIntervalSeconds int
	StaleWindowSeconds     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Server
		APIPort:         envInt("API_PORT", 3001),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		// Logging
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "console"),

		// Database
		DBHost:        envStr("DB_HOST", "localhost"),
		DBPort:        envInt("DB_PORT", 5432),
		DBName:        envStr("DB_NAME", "nordfolio"),
		DBUser:        envStr("DB_USER", ""),
		DBPassword:    envStr("DB_PASSWORD", ""),
		DBAutoMigrate: envBool("DB_AUTO_MIGRATE", false),

		// Quote providers
		YahooBaseURL:           envStr("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		AlphaVantageAPIKey:     envStr("ALPHA_VANTAGE_API_KEY", ""),
		AlphaVantageBaseURL:    envStr("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co"),
		AlphaVantageMaxRPM:     envInt("ALPHA_VANTAGE_MAX_RPM", 5),
		FundPriceURL:           envStr("FUND_PRICE_URL", ""),
		FundPricePath:          envStr("FUND_PRICE_PATH", "$.price"),
		FundChangePath:         envStr("FUND_CHANGE_PATH", "$.change"),
		FundCurrencyPath:       envStr("FUND_CURRENCY_PATH", ""),
		ProviderTimeoutSeconds: envInt("PROVIDER_TIMEOUT_SECONDS", 10),
		QuoteCacheTTLSeconds:   envInt("QUOTE_CACHE_TTL_SECONDS", 15),

		// Aggregation
		BatchConcurrency: envInt("BATCH_CONCURRENCY", 8),

		// Refresh loop
		RefreshIntervalSeconds: envInt("REFRESH_INTERVAL_SECONDS", 30),
		StaleWindowSeconds:     envInt("STALE_WINDOW_SECONDS", 60),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Sprintf("API_PORT %d is out of range", c.APIPort))
	}
	if c.RefreshIntervalSeconds <= 0 {
		errs = append(errs, "REFRESH_INTERVAL_SECONDS must be positive")
	}
	if c.StaleWindowSeconds < 0 {
		errs = append(errs, "STALE_WINDOW_SECONDS must not be negative")
	}
	if c.ProviderTimeoutSeconds <= 0 {
		errs = append(errs, "PROVIDER_TIMEOUT_SECONDS must be positive")
	}
	if c.BatchConcurrency <= 0 {
		errs = append(errs, "BATCH_CONCURRENCY must be positive")
	}
	if c.FundPriceURL != "" && !strings.Contains(c.FundPriceURL, "{isin}") {
		errs = append(errs, "FUND_PRICE_URL must contain an {isin} placeholder")
	}
	if c.FundPriceURL != "" && c.FundPricePath == "" {
		errs = append(errs, "FUND_PRICE_PATH is required when FUND_PRICE_URL is set")
	}

	if c.AlphaVantageAPIKey == "" {
		fmt.Println("[WARN] ALPHA_VANTAGE_API_KEY not set; equity lookups have no fallback provider")
	}
	if c.FundPriceURL == "" {
		fmt.Println("[WARN] FUND_PRICE_URL not set; fund prices come from the built-in reference table")
	}
	if c.StaleWindowSeconds < c.RefreshIntervalSeconds {
		fmt.Println("[WARN] STALE_WINDOW_SECONDS is shorter than REFRESH_INTERVAL_SECONDS; every tick refetches every holding")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Nordfolio Configuration ===")
	fmt.Printf("API port: %d\n", c.APIPort)
	fmt.Printf("CORS origin: %s\n", c.CORSAllowOrigin)
	fmt.Printf("Database: %s:%d/%s (auto-migrate: %v)\n", c.DBHost, c.DBPort, c.DBName, c.DBAutoMigrate)
	fmt.Println("--------------------------------------")
	fmt.Println("Quote providers:")
	fmt.Printf("  Yahoo Finance: %s\n", c.YahooBaseURL)
	fmt.Printf("  Alpha Vantage: %s\n", boolLabel(c.AlphaVantageAPIKey != "",
		fmt.Sprintf("configured (%d req/min)", c.AlphaVantageMaxRPM), "not set (no fallback)"))
	fmt.Printf("  Norwegian funds: %s\n", boolLabel(c.FundPriceURL != "", c.FundPriceURL, "reference table"))
	fmt.Printf("  Timeout: %ds, cache TTL: %ds\n", c.ProviderTimeoutSeconds, c.QuoteCacheTTLSeconds)
	fmt.Println("--------------------------------------")
	fmt.Println("Refresh loop:")
	fmt.Printf("  Tick every %ds, stale after %ds\n", c.RefreshIntervalSeconds, c.StaleWindowSeconds)
	fmt.Printf("  Batch concurrency: %d\n", c.BatchConcurrency)
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

func (c *Config) StaleWindow() time.Duration {
	return time.Duration(c.StaleWindowSeconds) * time.Second
}

func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSeconds) * time.Second
}

func (c *Config) QuoteCacheTTL() time.Duration {
	return time.Duration(c.QuoteCacheTTLSeconds) * time.Second
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
