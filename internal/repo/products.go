package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const productColumns = `id::text, sku, name, price, tax_category, stock_quantity, min_stock_level, is_active, created_at, updated_at`

// GetProduct loads one catalog row by id.
func (s *Store) GetProduct(ctx context.Context, id string) (Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	var p Product
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.SKU, &p.Name, &p.Price, &p.TaxCategory, &p.StockQuantity, &p.MinStockLevel, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// ListProducts returns active catalog rows, newest first.
func (s *Store) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + productColumns + `
FROM products
WHERE is_active
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	rows, err := s.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.TaxCategory, &p.StockQuantity, &p.MinStockLevel, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
