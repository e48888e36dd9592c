package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/go-resty/resty/v2"
	"github.com/kjannette/nordfolio-backend/internal/httputil"
	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/shopspring/decimal"
)

const SourceNorwegianFunds = "norwegian_funds"

// FundPathConfig holds the JSONPath expressions used to pull values out of
// a fund price document. Only PricePath is required.
type FundPathConfig struct {
	PricePath    string
	ChangePath   string
	CurrencyPath string
}

type fundReference struct {
	name   string
	price  decimal.Decimal
	change decimal.Decimal
}

// referenceFunds is used when no fund price URL is configured.
var referenceFunds = map[string]fundReference{
	"NO0010841588": {name: "DNB Norge (I)", price: decimal.RequireFromString("1850.50"), change: decimal.RequireFromString("12.30")},
	"NO0010582521": {name: "Storebrand Norge I", price: decimal.RequireFromString("245.80"), change: decimal.RequireFromString("-2.10")},
	"NO0010337682": {name: "KLP AksjeNorge Indeks", price: decimal.RequireFromString("189.20"), change: decimal.RequireFromString("5.70")},
}

// NorwegianFunds looks up mutual fund prices by ISIN.
type NorwegianFunds struct {
	client      *resty.Client
	urlTemplate string
	paths       FundPathConfig
	now         func() time.Time
}

// NewNorwegianFunds builds the fund adapter. An empty urlTemplate makes it
// answer from the built-in reference table.
func NewNorwegianFunds(client *resty.Client, urlTemplate string, paths FundPathConfig) *NorwegianFunds {
	return &NorwegianFunds{
		client:      client,
		urlTemplate: urlTemplate,
		paths:       paths,
		now:         time.Now,
	}
}

func (f *NorwegianFunds) Name() string { return SourceNorwegianFunds }

func (f *NorwegianFunds) FetchQuote(ctx context.Context, isin string, _ models.AssetType) (*models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		price, change decimal.Decimal
		currency      = "NOK"
	)

	if f.urlTemplate == "" {
		ref, ok := referenceFunds[isin]
		if !ok {
			return nil, fmt.Errorf("fund %s: %w", isin, ErrNoQuote)
		}
		price, change = ref.price, ref.change
	} else {
		doc, err := f.fetchDocument(ctx, isin)
		if err != nil {
			return nil, err
		}
		price, err = extractDecimal(doc, f.paths.PricePath)
		if err != nil {
			return nil, fmt.Errorf("fund %s price: %w", isin, err)
		}
		if f.paths.ChangePath != "" {
			if c, err := extractDecimal(doc, f.paths.ChangePath); err == nil {
				change = c
			}
		}
		if f.paths.CurrencyPath != "" {
			if c, err := extractString(doc, f.paths.CurrencyPath); err == nil && c != "" {
				currency = strings.ToUpper(c)
			}
		}
	}

	changePct := decimal.Zero
	if base := price.Sub(change); !base.IsZero() {
		changePct = change.Div(base).Mul(decimal.NewFromInt(100)).Round(4)
	}

	return &models.Quote{
		Symbol:        isin,
		Price:         price,
		Currency:      currency,
		Change:        change,
		ChangePercent: changePct,
		Source:        SourceNorwegianFunds,
		ObservedAt:    f.now().UTC(),
	}, nil
}

func (f *NorwegianFunds) fetchDocument(ctx context.Context, isin string) (any, error) {
	target := strings.ReplaceAll(f.urlTemplate, "{isin}", url.PathEscape(isin))

	resp, err := f.client.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, fmt.Errorf("fund fetch %s: %w", isin, err)
	}
	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("fund fetch %s: %w", isin, err)
	}

	var doc any
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("fund decode %s: %w", isin, err)
	}
	return doc, nil
}

// evalPath runs a JSONPath expression and unwraps single-element results,
// since jsonpath returns a list for filter and slice expressions.
func evalPath(doc any, path string) (any, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("jsonpath %q: %w", path, err)
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("jsonpath %q: %w", path, ErrNoQuote)
		}
		v = list[0]
	}
	return v, nil
}

func extractDecimal(doc any, path string) (decimal.Decimal, error) {
	v, err := evalPath(doc, path)
	if err != nil {
		return decimal.Zero, err
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero, fmt.Errorf("jsonpath %q: %w", path, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("jsonpath %q: not a number: %v", path, v)
	}
}

func extractString(doc any, path string) (string, error) {
	v, err := evalPath(doc, path)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("jsonpath %q: not a string: %v", path, v)
	}
	return s, nil
}
