package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Customer is the loyalty-bearing party of a sale.
type Customer struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	LoyaltyPoints int     `json:"loyaltyPoints"`
	TotalSpent    float64 `json:"totalSpent"`
}

// GetCustomer loads one customer row.
func (s *Store) GetCustomer(ctx context.Context, id string) (Customer, error) {
	const q = `SELECT id::text, name, loyalty_points, total_spent FROM customers WHERE id = $1`
	var c Customer
	err := s.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Name, &c.LoyaltyPoints, &c.TotalSpent)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

// AddLoyaltyPoints grants points and records the spend in one atomic update.
// The increment form keeps concurrent accruals from losing each other.
func (s *Store) AddLoyaltyPoints(ctx context.Context, customerID string, points int, spent float64) (int, error) {
	const q = `
UPDATE customers
SET loyalty_points = loyalty_points + $2, total_spent = total_spent + $3, updated_at = now()
WHERE id = $1
RETURNING loyalty_points`
	var balance int
	err := s.pool.QueryRow(ctx, q, customerID, points, spent).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}
