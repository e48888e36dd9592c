package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/nordfolio-backend/internal/models"
	"github.com/shopspring/decimal"
)

const assetColumns = `a.id, a.portfolio_id, a.name, a.symbol, a.asset_type, a.currency, a.platform,
	a.current_price, a.quantity, a.average_cost, a.last_updated, a.created_at, a.metadata`

type AssetRepo struct {
	pool *pgxpool.Pool
}

func NewAssetRepo(pool *pgxpool.Pool) *AssetRepo {
	return &AssetRepo{pool: pool}
}

// NewAsset is the input of Create.
type NewAsset struct {
	PortfolioID int64
	Name        string
	Symbol      *string
	AssetType   models.AssetType
	Currency    string
	Platform    *string
	Quantity    decimal.Decimal
	AverageCost decimal.NullDecimal
	Metadata    json.RawMessage
}

func (r *AssetRepo) Create(ctx context.Context, in NewAsset) (*models.Asset, error) {
	metadata := in.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage(`{}`)
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO assets AS a
		 (portfolio_id, name, symbol, asset_type, currency, platform, quantity, average_cost, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING `+assetColumns,
		in.PortfolioID, in.Name, in.Symbol, string(in.AssetType), in.Currency,
		in.Platform, in.Quantity, in.AverageCost, metadata,
	)
	return scanAsset(row)
}

// ListByPortfolio returns a portfolio's assets, newest first, with their
// market value, book value and return derived from the stored prices.
func (r *AssetRepo) ListByPortfolio(ctx context.Context, portfolioID int64) ([]models.AssetValuation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assetColumns+`,
		        COALESCE(a.current_price * a.quantity, 0),
		        COALESCE(a.average_cost * a.quantity, 0),
		        CASE WHEN a.average_cost > 0 AND a.current_price IS NOT NULL
		             THEN ((a.current_price - a.average_cost) / a.average_cost) * 100
		             ELSE 0
		        END
		 FROM assets a
		 WHERE a.portfolio_id = $1
		 ORDER BY a.created_at DESC`,
		portfolioID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AssetValuation{}
	for rows.Next() {
		var v models.AssetValuation
		dest := append(assetDest(&v.Asset), &v.MarketValue, &v.BookValue, &v.ReturnPercentage)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListSymbolHoldings returns every asset of the user that carries a symbol.
func (r *AssetRepo) ListSymbolHoldings(ctx context.Context, userID string) ([]models.Asset, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assetColumns+`
		 FROM assets a
		 JOIN portfolios p ON a.portfolio_id = p.id
		 WHERE p.user_id = $1 AND a.symbol IS NOT NULL AND a.symbol <> ''
		 ORDER BY a.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssets(rows)
}

// IDsBySymbol returns the ids of every asset holding symbol, across users.
func (r *AssetRepo) IDsBySymbol(ctx context.Context, symbol string) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM assets WHERE symbol = $1 ORDER BY id`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *AssetRepo) Update(ctx context.Context, id int64, p models.AssetPatch) (*models.Asset, error) {
	var metadata any
	if len(p.Metadata) > 0 {
		metadata = p.Metadata
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE assets AS a SET
		    name          = COALESCE($2, a.name),
		    symbol        = COALESCE($3, a.symbol),
		    quantity      = COALESCE($4, a.quantity),
		    average_cost  = COALESCE($5, a.average_cost),
		    current_price = COALESCE($6, a.current_price),
		    platform      = COALESCE($7, a.platform),
		    metadata      = COALESCE($8::jsonb, a.metadata),
		    last_updated  = GREATEST(a.last_updated, NOW())
		 WHERE a.id = $1
		 RETURNING `+assetColumns,
		id, p.Name, p.Symbol, p.Quantity, p.AverageCost, p.CurrentPrice, p.Platform, metadata,
	)
	a, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *AssetRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- scan helpers ---

func assetDest(a *models.Asset) []any {
	return []any{
		&a.ID, &a.PortfolioID, &a.Name, &a.Symbol, &a.AssetType, &a.Currency, &a.Platform,
		&a.CurrentPrice, &a.Quantity, &a.AverageCost, &a.LastUpdated, &a.CreatedAt, &a.Metadata,
	}
}

func scanAsset(row scannable) (*models.Asset, error) {
	var a models.Asset
	if err := row.Scan(assetDest(&a)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAssets(rows rowsIter) ([]models.Asset, error) {
	var out []models.Asset
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(assetDest(&a)...); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
