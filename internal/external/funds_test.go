package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kjannette/nordfolio-backend/internal/httputil"
	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNorwegianFunds_ReferenceTable(t *testing.T) {
	f := NewNorwegianFunds(nil, "", FundPathConfig{})

	q, err := f.FetchQuote(context.Background(), "NO0010841588", models.AssetFund)
	require.NoError(t, err)

	assert.True(t, q.Price.Equal(decimal.RequireFromString("1850.5")))
	assert.True(t, q.Change.Equal(decimal.RequireFromString("12.3")))
	// 12.3 / (1850.5 - 12.3) * 100
	assert.True(t, q.ChangePercent.Equal(decimal.RequireFromString("0.6691")), q.ChangePercent.String())
	assert.Equal(t, "NOK", q.Currency)
	assert.Equal(t, SourceNorwegianFunds, q.Source)

	_, err = f.FetchQuote(context.Background(), "NO0000000000", models.AssetFund)
	assert.True(t, errors.Is(err, ErrNoQuote))
}

func TestNorwegianFunds_RemoteJSONPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"fund":{"isin":"NO0010582521","nav":[{"value":"250.00","delta":10,"ccy":"nok"}]}}`))
	}))
	defer srv.Close()

	f := NewNorwegianFunds(httputil.NewClient(2*time.Second), srv.URL+"/funds/{isin}/nav", FundPathConfig{
		PricePath:    "$.fund.nav[0].value",
		ChangePath:   "$.fund.nav[0].delta",
		CurrencyPath: "$.fund.nav[*].ccy",
	})

	q, err := f.FetchQuote(context.Background(), "NO0010582521", models.AssetFund)
	require.NoError(t, err)

	assert.Equal(t, "/funds/NO0010582521/nav", gotPath)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(250)))
	assert.True(t, q.Change.Equal(decimal.NewFromInt(10)))
	assert.True(t, q.ChangePercent.Equal(decimal.RequireFromString("4.1667")), q.ChangePercent.String())
	assert.Equal(t, "NOK", q.Currency)
}

func TestNorwegianFunds_RemoteMissingPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"other":1}`))
	}))
	defer srv.Close()

	f := NewNorwegianFunds(httputil.NewClient(2*time.Second), srv.URL+"/{isin}", FundPathConfig{PricePath: "$.price"})
	_, err := f.FetchQuote(context.Background(), "NO0010582521", models.AssetFund)
	require.Error(t, err)
}
