package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certready/certready-backend/internal/model"
)

// ProductRepository handles access product data access.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, code, version, name, category, amount, currency, duration_days, created_at`

func scanProduct(row interface{ Scan(...any) error }) (*model.AccessProduct, error) {
	p := &model.AccessProduct{}
	err := row.Scan(&p.ID, &p.Code, &p.Version, &p.Name, &p.Category, &p.Amount, &p.Currency, &p.DurationDays, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves one product version.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AccessProduct, error) {
	return scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM access_products WHERE id = $1`, id))
}

// GetLatestByCode retrieves the current effective version of a product code.
func (r *ProductRepository) GetLatestByCode(ctx context.Context, code string) (*model.AccessProduct, error) {
	return scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+`
		 FROM access_products
		 WHERE code = $1
		 ORDER BY version DESC
		 LIMIT 1`, code))
}

// UpsertByCode inserts a new effective version under the given code.
// Existing versions stay untouched so transactions keep a stable reference.
func (r *ProductRepository) UpsertByCode(ctx context.Context, p *model.AccessProduct) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO access_products (code, version, name, category, amount, currency, duration_days)
		 VALUES ($1,
		         COALESCE((SELECT MAX(version) FROM access_products WHERE code = $1), 0) + 1,
		         $2, $3, $4, $5, $6)
		 RETURNING id, version, created_at`,
		p.Code, p.Name, p.Category, p.Amount, p.Currency, p.DurationDays,
	).Scan(&p.ID, &p.Version, &p.CreatedAt)
}

// ListLatest returns the current version of every product code.
func (r *ProductRepository) ListLatest(ctx context.Context) ([]model.AccessProduct, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (code) `+productColumns+`
		 FROM access_products
		 ORDER BY code, version DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []model.AccessProduct
	for rows.Next() {
		var p model.AccessProduct
		if err := rows.Scan(&p.ID, &p.Code, &p.Version, &p.Name, &p.Category, &p.Amount, &p.Currency, &p.DurationDays, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
