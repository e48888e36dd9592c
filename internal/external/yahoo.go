package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kjannette/nordfolio-backend/internal/httputil"
	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/shopspring/decimal"
)

const SourceYahoo = "yahoo_finance"

// Bare 3-5 letter tickers are assumed to be listed on Oslo Børs.
var osloTicker = regexp.MustCompile(`^[A-Z]{3,5}$`)

type YahooFinance struct {
	client  *resty.Client
	baseURL string
	now     func() time.Time
}

func NewYahooFinance(client *resty.Client, baseURL string) *YahooFinance {
	return &YahooFinance{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (y *YahooFinance) Name() string { return SourceYahoo }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string   `json:"currency"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PreviousClose      *float64 `json:"previousClose"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooFinance) FetchQuote(ctx context.Context, symbol string, _ models.AssetType) (*models.Quote, error) {
	formatted := FormatOsloSymbol(symbol)

	resp, err := y.client.R().
		SetContext(ctx).
		Get(y.baseURL + "/v8/finance/chart/" + url.PathEscape(formatted))
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", formatted, err)
	}
	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", formatted, err)
	}

	var data yahooChart
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, fmt.Errorf("yahoo decode %s: %w", formatted, err)
	}
	if data.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %w", formatted, data.Chart.Error.Description, ErrNoQuote)
	}
	if len(data.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", formatted, ErrNoQuote)
	}

	result := data.Chart.Result[0]
	var closes []float64
	if len(result.Indicators.Quote) > 0 {
		for _, c := range result.Indicators.Quote[0].Close {
			if c != nil {
				closes = append(closes, *c)
			}
		}
	}

	var price float64
	switch {
	case result.Meta.RegularMarketPrice != nil:
		price = *result.Meta.RegularMarketPrice
	case len(closes) > 0:
		price = closes[len(closes)-1]
	default:
		return nil, fmt.Errorf("yahoo %s: no price in chart: %w", formatted, ErrNoQuote)
	}

	var prevClose float64
	switch {
	case result.Meta.PreviousClose != nil:
		prevClose = *result.Meta.PreviousClose
	case result.Meta.ChartPreviousClose != nil:
		prevClose = *result.Meta.ChartPreviousClose
	case len(closes) > 1:
		prevClose = closes[len(closes)-2]
	}

	currency := result.Meta.Currency
	if currency == "" {
		currency = "NOK"
	}

	p := decimal.NewFromFloat(price)
	change, changePct := changeFrom(p, decimal.NewFromFloat(prevClose))

	return &models.Quote{
		Symbol:         symbol,
		ProviderSymbol: formatted,
		Price:          p,
		Currency:       currency,
		Change:         change,
		ChangePercent:  changePct,
		Source:         SourceYahoo,
		ObservedAt:     y.now().UTC(),
	}, nil
}

// FormatOsloSymbol adds the Oslo Børs ".OL" suffix to bare tickers.
func FormatOsloSymbol(symbol string) string {
	if osloTicker.MatchString(symbol) {
		return symbol + ".OL"
	}
	return symbol
}

// changeFrom returns the absolute and percentage change from prev to price.
// A zero prev yields a zero percentage.
func changeFrom(price, prev decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if prev.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	change := price.Sub(prev)
	return change, change.Div(prev).Mul(decimal.NewFromInt(100)).Round(4)
}
