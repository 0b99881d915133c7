package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/checkout"
	"github.com/noah-isme/backend-pos/internal/inventory"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("repo: not found")

// Product is the catalog row the cart and checkout paths read.
type Product struct {
	ID            string    `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	TaxCategory   string    `json:"taxCategory"`
	StockQuantity int       `json:"stockQuantity"`
	MinStockLevel int       `json:"minStockLevel"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Store owns the connection pool. The typed views below expose it to each
// consumer under that consumer's transaction interface.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewStore(pool *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

func (s *Store) inTx(ctx context.Context, fn func(*Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(ptx pgx.Tx) error {
		return fn(&Tx{tx: ptx, logger: s.logger})
	})
}

// Tx wraps one database transaction. It satisfies both the checkout and the
// inventory transaction interfaces so the whole commit unit rides a single
// BEGIN/COMMIT.
type Tx struct {
	tx     pgx.Tx
	logger zerolog.Logger
}

// Checkout exposes the store as the checkout engine's transaction opener.
func (s *Store) Checkout() checkout.Store { return checkoutStore{s} }

// Inventory exposes the store as the adjustment path's transaction opener.
func (s *Store) Inventory() inventory.Store { return inventoryStore{s} }

type checkoutStore struct{ s *Store }

func (c checkoutStore) InTx(ctx context.Context, fn func(checkout.Tx) error) error {
	return c.s.inTx(ctx, func(tx *Tx) error { return fn(tx) })
}

type inventoryStore struct{ s *Store }

func (i inventoryStore) InTx(ctx context.Context, fn func(inventory.Tx) error) error {
	return i.s.inTx(ctx, func(tx *Tx) error { return fn(tx) })
}
