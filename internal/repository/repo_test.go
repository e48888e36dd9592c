package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/kjannette/nordfolio-backend/internal/repository"
	"github.com/kjannette/nordfolio-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

// ---------- PortfolioRepo + AssetRepo ----------

func TestPortfolioAndAssetRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	store := repository.NewStore(pool)
	ctx := context.Background()
	user := testutil.UniqueUser(t)

	p, err := store.Portfolios.Create(ctx, user, "Aksjesparekonto", strPtr("ASK at Nordnet"))
	if err != nil {
		t.Fatalf("Create portfolio: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	t.Logf("Created portfolio: id=%d name=%s", p.ID, p.Name)

	eqnr, err := store.Assets.Create(ctx, repository.NewAsset{
		PortfolioID: p.ID,
		Name:        "Equinor",
		Symbol:      strPtr("EQNR"),
		AssetType:   models.AssetStock,
		Currency:    "NOK",
		Quantity:    decimal.NewFromInt(10),
		AverageCost: decimal.NewNullDecimal(decimal.NewFromInt(250)),
		Metadata:    json.RawMessage(`{"sector":"energy"}`),
	})
	if err != nil {
		t.Fatalf("Create asset: %v", err)
	}
	if _, err := store.Assets.Create(ctx, repository.NewAsset{
		PortfolioID: p.ID,
		Name:        "Sparekonto",
		AssetType:   models.AssetCash,
		Currency:    "NOK",
		Quantity:    decimal.NewFromInt(5000),
	}); err != nil {
		t.Fatalf("Create cash asset: %v", err)
	}

	// Only the symbol-carrying asset is a refresh candidate
	holdings, err := store.SymbolHoldings(ctx, user)
	if err != nil {
		t.Fatalf("SymbolHoldings: %v", err)
	}
	if len(holdings) != 1 || holdings[0].ID != eqnr.ID {
		t.Fatalf("expected only EQNR, got %+v", holdings)
	}

	// RecordQuote sets the price and appends history
	ts := time.Now().Add(time.Minute)
	q := models.Quote{Symbol: "EQNR", Price: decimal.RequireFromString("275.5"), Currency: "NOK", Source: "yahoo_finance"}
	if err := store.RecordQuote(ctx, eqnr.ID, q, ts); err != nil {
		t.Fatalf("RecordQuote: %v", err)
	}

	history, err := store.Prices.GetByAsset(ctx, eqnr.ID, 10)
	if err != nil {
		t.Fatalf("GetByAsset: %v", err)
	}
	if len(history) != 1 || !history[0].Price.Equal(q.Price) {
		t.Fatalf("expected one history row at %s, got %+v", q.Price, history)
	}

	// Valuation: 10 x 275.5, cash has no price so contributes 0
	summaries, err := store.PortfolioSummaries(ctx, user)
	if err != nil {
		t.Fatalf("PortfolioSummaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 portfolio, got %d", len(summaries))
	}
	if !summaries[0].TotalValue.Equal(decimal.RequireFromString("2755")) {
		t.Fatalf("total value: got %s", summaries[0].TotalValue)
	}
	if summaries[0].AssetCount != 2 {
		t.Fatalf("asset count: got %d", summaries[0].AssetCount)
	}
	t.Logf("Portfolio value: %s over %d assets", summaries[0].TotalValue, summaries[0].AssetCount)

	// An older write must not move last_updated backwards
	if err := store.RecordQuote(ctx, eqnr.ID, q, ts.Add(-time.Hour)); err != nil {
		t.Fatalf("RecordQuote (older): %v", err)
	}
	holdings, err = store.SymbolHoldings(ctx, user)
	if err != nil {
		t.Fatalf("SymbolHoldings: %v", err)
	}
	if holdings[0].LastUpdated.Before(ts.Add(-time.Millisecond)) {
		t.Fatalf("last_updated moved backwards: %s < %s", holdings[0].LastUpdated, ts)
	}

	// Valuation listing
	vals, err := store.Assets.ListByPortfolio(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByPortfolio: %v", err)
	}
	for _, v := range vals {
		if v.ID == eqnr.ID && !v.BookValue.Equal(decimal.NewFromInt(2500)) {
			t.Fatalf("book value: got %s", v.BookValue)
		}
	}

	// Update + Delete
	updated, err := store.Assets.Update(ctx, eqnr.ID, models.AssetPatch{
		Quantity: decimal.NewNullDecimal(decimal.NewFromInt(12)),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Quantity.Equal(decimal.NewFromInt(12)) || updated.Name != "Equinor" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if err := store.Assets.Delete(ctx, eqnr.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Assets.Delete(ctx, eqnr.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := store.Assets.Update(ctx, eqnr.ID, models.AssetPatch{}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update of deleted asset, got %v", err)
	}
}

// ---------- Store.ApplyQuote ----------

func TestStoreApplyQuote(t *testing.T) {
	pool := testutil.SetupPool(t)
	store := repository.NewStore(pool)
	ctx := context.Background()
	user := testutil.UniqueUser(t)
	symbol := "T" + time.Now().Format("150405")

	p, err := store.Portfolios.Create(ctx, user, "IPS", nil)
	if err != nil {
		t.Fatalf("Create portfolio: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := store.Assets.Create(ctx, repository.NewAsset{
			PortfolioID: p.ID, Name: "Shared", Symbol: strPtr(symbol),
			AssetType: models.AssetStock, Currency: "USD", Quantity: decimal.NewFromInt(1),
		}); err != nil {
			t.Fatalf("Create asset: %v", err)
		}
	}

	n, err := store.ApplyQuote(ctx, models.Quote{
		Symbol: symbol, Price: decimal.NewFromInt(42), Currency: "USD", Source: "alpha_vantage",
	}, time.Now())
	if err != nil {
		t.Fatalf("ApplyQuote: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected both holdings updated, got %d", n)
	}
	t.Logf("ApplyQuote updated %d assets", n)
}
