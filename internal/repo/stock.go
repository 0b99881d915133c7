package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-pos/internal/inventory"
)

// ProductStock reads the current on-hand quantity. Callers re-read before
// every compare-and-swap attempt, so this is always a fresh statement.
func (t *Tx) ProductStock(ctx context.Context, productID string) (int, error) {
	const q = `SELECT stock_quantity FROM products WHERE id = $1`
	var qty int
	err := t.tx.QueryRow(ctx, q, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// UpdateStock applies delta only if the row still holds previousQty. Zero rows
// affected means another writer got there first.
func (t *Tx) UpdateStock(ctx context.Context, productID string, previousQty, delta int) (int, error) {
	const q = `
UPDATE products
SET stock_quantity = stock_quantity + $3, updated_at = now()
WHERE id = $1 AND stock_quantity = $2
RETURNING stock_quantity`
	var newQty int
	err := t.tx.QueryRow(ctx, q, productID, previousQty, delta).Scan(&newQty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, inventory.ErrStockConflict
	}
	if err != nil {
		return 0, err
	}
	return newQty, nil
}

// AppendMovement writes one audit row to the movement ledger.
func (t *Tx) AppendMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	const q = `
INSERT INTO inventory_movements (product_id, store_id, movement_type, quantity_change, previous_qty, new_qty, reason, reference_id, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, '')::uuid, $9, $10)
RETURNING id::text`
	err := t.tx.QueryRow(ctx, q,
		m.ProductID, m.StoreID, m.Type, m.QuantityChange, m.PreviousQty, m.NewQty,
		m.Reason, m.ReferenceID, m.CreatedBy, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return inventory.Movement{}, err
	}
	return m, nil
}

// Movements lists the ledger for one product, newest first.
func (s *Store) Movements(ctx context.Context, productID string, limit int) ([]inventory.Movement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `
SELECT id::text, product_id::text, store_id, movement_type, quantity_change, previous_qty, new_qty, COALESCE(reason, ''), COALESCE(reference_id::text, ''), created_by, created_at
FROM inventory_movements
WHERE product_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := s.pool.Query(ctx, q, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventory.Movement
	for rows.Next() {
		var m inventory.Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.StoreID, &m.Type, &m.QuantityChange, &m.PreviousQty, &m.NewQty, &m.Reason, &m.ReferenceID, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
