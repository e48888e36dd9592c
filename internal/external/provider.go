// Package external holds the adapters for third-party quote providers.
// Each adapter normalizes its upstream payload into a models.Quote.
package external

import (
	"context"
	"errors"

	"github.com/kjannette/nordfolio-backend/internal/models"
)

// ErrNoQuote is returned when a provider answers but has no price for the symbol.
var ErrNoQuote = errors.New("no quote data found")

// Provider fetches a single quote. Any failure is reported through the
// returned error; implementations must not panic.
type Provider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string, assetType models.AssetType) (*models.Quote, error)
}
