package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-pos/internal/checkout"
)

const saleColumns = `id::text, number, customer_id::text, cashier_id, store_id, subtotal, tax_amount, discount_amount, total_amount, tenders, payment_status, status, created_at`

func scanSale(row pgx.Row) (checkout.Sale, error) {
	var (
		sale       checkout.Sale
		tendersRaw []byte
	)
	err := row.Scan(
		&sale.ID, &sale.Number, &sale.CustomerID, &sale.CashierID, &sale.StoreID,
		&sale.Subtotal, &sale.TaxAmount, &sale.DiscountAmount, &sale.TotalAmount,
		&tendersRaw, &sale.PaymentStatus, &sale.Status, &sale.CreatedAt,
	)
	if err != nil {
		return checkout.Sale{}, err
	}
	if len(tendersRaw) > 0 {
		if err := json.Unmarshal(tendersRaw, &sale.Tenders); err != nil {
			return checkout.Sale{}, fmt.Errorf("decode tenders for sale %s: %w", sale.Number, err)
		}
	}
	return sale, nil
}

// SaleByNumber checks for an already-committed sale inside the commit
// transaction. It is the durable half of the idempotency guarantee.
func (t *Tx) SaleByNumber(ctx context.Context, number string) (checkout.Sale, bool, error) {
	const q = `SELECT ` + saleColumns + ` FROM sales WHERE number = $1`
	sale, err := scanSale(t.tx.QueryRow(ctx, q, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return checkout.Sale{}, false, nil
	}
	if err != nil {
		return checkout.Sale{}, false, err
	}
	return sale, true, nil
}

// InsertSale writes the sale header and returns the generated id. The unique
// index on number makes a racing duplicate fail the whole transaction.
func (t *Tx) InsertSale(ctx context.Context, sale checkout.Sale) (string, error) {
	tenders, err := json.Marshal(sale.Tenders)
	if err != nil {
		return "", fmt.Errorf("encode tenders: %w", err)
	}
	const q = `
INSERT INTO sales (number, customer_id, cashier_id, store_id, subtotal, tax_amount, discount_amount, total_amount, tenders, payment_status, status, created_at)
VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id::text`
	customerID := ""
	if sale.CustomerID != nil {
		customerID = *sale.CustomerID
	}
	var id string
	err = t.tx.QueryRow(ctx, q,
		sale.Number, customerID, sale.CashierID, sale.StoreID,
		sale.Subtotal, sale.TaxAmount, sale.DiscountAmount, sale.TotalAmount,
		tenders, sale.PaymentStatus, sale.Status, sale.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// InsertSaleLines writes the frozen line snapshots in one batch.
func (t *Tx) InsertSaleLines(ctx context.Context, lines []checkout.SaleLine) error {
	const q = `
INSERT INTO sale_lines (sale_id, product_id, qty, unit_price, discount_amount, line_total)
VALUES ($1, $2, $3, $4, $5, $6)`
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(q, l.SaleID, l.ProductID, l.Qty, l.UnitPrice, l.DiscountAmount, l.LineTotal)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

// ReceiptByNumber loads a committed sale with its lines for receipt lookup.
func (s *Store) ReceiptByNumber(ctx context.Context, number string) (checkout.Receipt, bool, error) {
	const q = `SELECT ` + saleColumns + ` FROM sales WHERE number = $1`
	sale, err := scanSale(s.pool.QueryRow(ctx, q, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return checkout.Receipt{}, false, nil
	}
	if err != nil {
		return checkout.Receipt{}, false, err
	}

	const lq = `
SELECT sale_id::text, product_id::text, qty, unit_price, discount_amount, line_total
FROM sale_lines
WHERE sale_id = $1
ORDER BY id`
	rows, err := s.pool.Query(ctx, lq, sale.ID)
	if err != nil {
		return checkout.Receipt{}, false, err
	}
	defer rows.Close()

	var lines []checkout.SaleLine
	for rows.Next() {
		var l checkout.SaleLine
		if err := rows.Scan(&l.SaleID, &l.ProductID, &l.Qty, &l.UnitPrice, &l.DiscountAmount, &l.LineTotal); err != nil {
			return checkout.Receipt{}, false, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return checkout.Receipt{}, false, err
	}
	return checkout.Receipt{Sale: sale, Lines: lines}, true, nil
}
