package external

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kjannette/nordfolio-backend/internal/httputil"
	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/shopspring/decimal"
)

const SourceAlphaVantage = "alpha_vantage"

// AlphaVantage queries the GLOBAL_QUOTE endpoint. The free tier allows only a
// handful of requests per minute, so callers should wrap it in a RateLimited.
type AlphaVantage struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	now     func() time.Time
}

func NewAlphaVantage(client *resty.Client, baseURL, apiKey string) *AlphaVantage {
	return &AlphaVantage{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		now:     time.Now,
	}
}

func (a *AlphaVantage) Name() string { return SourceAlphaVantage }

type globalQuoteResponse struct {
	GlobalQuote map[string]string `json:"Global Quote"`
	Note        string            `json:"Note"`
	Information string            `json:"Information"`
	Error       string            `json:"Error Message"`
}

func (a *AlphaVantage) FetchQuote(ctx context.Context, symbol string, _ models.AssetType) (*models.Quote, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   a.apiKey,
		}).
		Get(a.baseURL + "/query")
	if err != nil {
		return nil, fmt.Errorf("alpha vantage fetch %s: %w", symbol, err)
	}
	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("alpha vantage fetch %s: %w", symbol, err)
	}

	var data globalQuoteResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, fmt.Errorf("alpha vantage decode %s: %w", symbol, err)
	}

	if len(data.GlobalQuote) == 0 {
		reason := firstNonEmpty(data.Note, data.Information, data.Error, "empty Global Quote")
		return nil, fmt.Errorf("alpha vantage %s: %s: %w", symbol, reason, ErrNoQuote)
	}

	price, err := parseDecimalField(data.GlobalQuote, "05. price")
	if err != nil {
		return nil, fmt.Errorf("alpha vantage %s: %w", symbol, err)
	}
	change, err := parseDecimalField(data.GlobalQuote, "09. change")
	if err != nil {
		change = decimal.Zero
	}
	changePct, err := parseDecimalField(data.GlobalQuote, "10. change percent")
	if err != nil {
		changePct = decimal.Zero
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         price,
		Currency:      "USD",
		Change:        change,
		ChangePercent: changePct,
		Source:        SourceAlphaVantage,
		ObservedAt:    a.now().UTC(),
	}, nil
}

func parseDecimalField(fields map[string]string, key string) (decimal.Decimal, error) {
	raw, ok := fields[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return decimal.Zero, fmt.Errorf("missing field %q: %w", key, ErrNoQuote)
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "%")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse field %q: %w", key, err)
	}
	return d, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
