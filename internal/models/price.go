package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time price observation from one provider.
type Quote struct {
	Symbol         string          `json:"symbol"`
	ProviderSymbol string          `json:"providerSymbol,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	Change         decimal.Decimal `json:"change"`
	ChangePercent  decimal.Decimal `json:"changePercent"`
	Source         string          `json:"source"`
	ObservedAt     time.Time       `json:"observedAt"`
}

// PriceRequest names one symbol to price and the asset class it belongs to.
type PriceRequest struct {
	Symbol    string    `json:"symbol"`
	AssetType AssetType `json:"assetType"`
}

type PriceHistory struct {
	ID         int64           `json:"id"`
	AssetID    int64           `json:"assetId"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Source     *string         `json:"source,omitempty"`
	RecordedAt time.Time       `json:"recordedAt"`
}
