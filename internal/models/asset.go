package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AssetType string

const (
	AssetStock      AssetType = "stock"
	AssetFund       AssetType = "fund"
	AssetRealEstate AssetType = "real_estate"
	AssetCash       AssetType = "cash"
)

func (t AssetType) Valid() bool {
	switch t {
	case AssetStock, AssetFund, AssetRealEstate, AssetCash:
		return true
	}
	return false
}

var currencies = map[string]bool{"NOK": true, "USD": true, "EUR": true, "SEK": true, "DKK": true}

// ValidCurrency reports whether c is one of the currencies an asset may be held in.
func ValidCurrency(c string) bool {
	return currencies[c]
}

type Asset struct {
	ID           int64               `json:"id"`
	PortfolioID  int64               `json:"portfolioId"`
	Name         string              `json:"name"`
	Symbol       *string             `json:"symbol,omitempty"`
	AssetType    AssetType           `json:"assetType"`
	Currency     string              `json:"currency"`
	Platform     *string             `json:"platform,omitempty"`
	CurrentPrice decimal.NullDecimal `json:"currentPrice"`
	Quantity     decimal.Decimal     `json:"quantity"`
	AverageCost  decimal.NullDecimal `json:"averageCost"`
	LastUpdated  time.Time           `json:"lastUpdated"`
	CreatedAt    time.Time           `json:"createdAt"`
	Metadata     json.RawMessage     `json:"metadata"`
}

// Refreshable reports whether the asset carries a symbol a provider can price.
func (a *Asset) Refreshable() bool {
	return a.Symbol != nil && *a.Symbol != ""
}

// AssetValuation is an asset plus the figures derived from it at read time.
type AssetValuation struct {
	Asset
	MarketValue      decimal.Decimal `json:"marketValue"`
	BookValue        decimal.Decimal `json:"bookValue"`
	ReturnPercentage decimal.Decimal `json:"returnPercentage"`
}

// AssetPatch carries the fields of a partial asset update. Nil means keep.
type AssetPatch struct {
	Name         *string
	Symbol       *string
	Quantity     decimal.NullDecimal
	AverageCost  decimal.NullDecimal
	CurrentPrice decimal.NullDecimal
	Platform     *string
	Metadata     json.RawMessage
}
