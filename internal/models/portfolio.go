package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Portfolio struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PortfolioSummary is a portfolio with its valuation derived from the
// holdings' current prices. It is never stored.
type PortfolioSummary struct {
	Portfolio
	AssetCount int64           `json:"assetCount"`
	TotalValue decimal.Decimal `json:"totalValue"`
}
