package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/nordfolio-backend/internal/models"
)

var ErrNotFound = errors.New("not found")

type PortfolioRepo struct {
	pool *pgxpool.Pool
}

func NewPortfolioRepo(pool *pgxpool.Pool) *PortfolioRepo {
	return &PortfolioRepo{pool: pool}
}

func (r *PortfolioRepo) Create(ctx context.Context, userID, name string, description *string) (*models.Portfolio, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO portfolios (user_id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, name, description, created_at, updated_at`,
		userID, name, description,
	)
	return scanPortfolio(row)
}

func (r *PortfolioRepo) Get(ctx context.Context, id int64) (*models.Portfolio, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at
		 FROM portfolios WHERE id = $1`,
		id,
	)
	p, err := scanPortfolio(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListWithValuation returns the user's portfolios, newest first, each with
// its asset count and total value derived from the current prices.
func (r *PortfolioRepo) ListWithValuation(ctx context.Context, userID string) ([]models.PortfolioSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.user_id, p.name, p.description, p.created_at, p.updated_at,
		        COUNT(a.id),
		        COALESCE(SUM(a.current_price * a.quantity), 0)
		 FROM portfolios p
		 LEFT JOIN assets a ON p.id = a.portfolio_id
		 WHERE p.user_id = $1
		 GROUP BY p.id
		 ORDER BY p.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PortfolioSummary{}
	for rows.Next() {
		var s models.PortfolioSummary
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt,
			&s.AssetCount, &s.TotalValue,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPortfolio(row scannable) (*models.Portfolio, error) {
	var p models.Portfolio
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
