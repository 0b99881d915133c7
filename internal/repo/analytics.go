package repo

import (
	"context"
	"time"
)

// SalesSummary aggregates committed sales over a time range.
type SalesSummary struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	SaleCount     int       `json:"saleCount"`
	GrossTotal    float64   `json:"grossTotal"`
	TaxTotal      float64   `json:"taxTotal"`
	DiscountTotal float64   `json:"discountTotal"`
	UnitsSold     int       `json:"unitsSold"`
}

// SummarizeSales aggregates active sales committed in [from, to).
func (s *Store) SummarizeSales(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	const q = `
SELECT count(*),
       COALESCE(sum(total_amount), 0),
       COALESCE(sum(tax_amount), 0),
       COALESCE(sum(discount_amount), 0),
       COALESCE((SELECT sum(l.qty) FROM sale_lines l JOIN sales sl ON sl.id = l.sale_id
                 WHERE sl.status = 'active' AND sl.created_at >= $1 AND sl.created_at < $2), 0)
FROM sales
WHERE status = 'active' AND created_at >= $1 AND created_at < $2`
	summary := SalesSummary{From: from, To: to}
	err := s.pool.QueryRow(ctx, q, from, to).Scan(
		&summary.SaleCount, &summary.GrossTotal, &summary.TaxTotal, &summary.DiscountTotal, &summary.UnitsSold,
	)
	if err != nil {
		return SalesSummary{}, err
	}
	return summary, nil
}
