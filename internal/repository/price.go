package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/nordfolio-backend/internal/models"
)

type PriceRepo struct {
	pool *pgxpool.Pool
}

func NewPriceRepo(pool *pgxpool.Pool) *PriceRepo {
	return &PriceRepo{pool: pool}
}

// GetByAsset returns the newest limit history rows for the asset.
func (r *PriceRepo) GetByAsset(ctx context.Context, assetID int64, limit int) ([]models.PriceHistory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, asset_id, price, currency, source, recorded_at
		 FROM price_history WHERE asset_id = $1
		 ORDER BY recorded_at DESC LIMIT $2`,
		assetID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPrices(rows)
}

// recordQuote sets the asset's latest price and appends the matching
// history row inside tx. last_updated never moves backwards.
func recordQuote(ctx context.Context, tx pgx.Tx, assetID int64, q models.Quote, ts time.Time) error {
	if _, err := tx.Exec(ctx,
		`UPDATE assets
		 SET current_price = $2, last_updated = GREATEST(last_updated, $3)
		 WHERE id = $1`,
		assetID, q.Price, ts,
	); err != nil {
		return err
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO price_history (asset_id, price, currency, source, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		assetID, q.Price, q.Currency, q.Source, ts,
	)
	return err
}

// --- scan helpers ---

func collectPrices(rows rowsIter) ([]models.PriceHistory, error) {
	out := []models.PriceHistory{}
	for rows.Next() {
		var p models.PriceHistory
		if err := rows.Scan(&p.ID, &p.AssetID, &p.Price, &p.Currency, &p.Source, &p.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
