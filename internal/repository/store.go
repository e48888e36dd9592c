package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/nordfolio-backend/internal/models"
)

// Store bundles the repositories behind the operations the refresh loop and
// the price routes need.
type Store struct {
	pool       *pgxpool.Pool
	Portfolios *PortfolioRepo
	Assets     *AssetRepo
	Prices     *PriceRepo
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:       pool,
		Portfolios: NewPortfolioRepo(pool),
		Assets:     NewAssetRepo(pool),
		Prices:     NewPriceRepo(pool),
	}
}

func (s *Store) SymbolHoldings(ctx context.Context, userID string) ([]models.Asset, error) {
	return s.Assets.ListSymbolHoldings(ctx, userID)
}

func (s *Store) PortfolioSummaries(ctx context.Context, userID string) ([]models.PortfolioSummary, error) {
	return s.Portfolios.ListWithValuation(ctx, userID)
}

// RecordQuote writes q as the asset's current price and appends one
// price_history row, atomically.
func (s *Store) RecordQuote(ctx context.Context, assetID int64, q models.Quote, ts time.Time) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return recordQuote(ctx, tx, assetID, q, ts)
	})
	if err != nil {
		return fmt.Errorf("record quote for asset %d: %w", assetID, err)
	}
	return nil
}

// ApplyQuote records q on every asset holding q.Symbol and returns how many
// were updated.
func (s *Store) ApplyQuote(ctx context.Context, q models.Quote, ts time.Time) (int, error) {
	ids, err := s.Assets.IDsBySymbol(ctx, q.Symbol)
	if err != nil {
		return 0, fmt.Errorf("find assets for %s: %w", q.Symbol, err)
	}
	for i, id := range ids {
		if err := s.RecordQuote(ctx, id, q, ts); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}
