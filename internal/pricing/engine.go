package pricing

import "math"

// DiscountKind tags how a line discount value is interpreted.
type DiscountKind string

const (
	// DiscountPercentage applies value as a percent of the unit price.
	DiscountPercentage DiscountKind = "percentage"
	// DiscountFixed applies value as a flat currency amount off the unit price.
	DiscountFixed DiscountKind = "fixed"
)

// Discount describes an optional per-line price reduction.
type Discount struct {
	Kind  DiscountKind `json:"kind"`
	Value float64      `json:"value"`
}

// Line is one priced cart entry. UnitPrice is the price snapshot taken when
// the product was added, not the current catalog price.
type Line struct {
	ProductID string
	UnitPrice float64
	Qty       int
	Discount  *Discount
}

// Summary aggregates computed pricing components for a cart.
type Summary struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// DiscountAmount returns the per-unit reduction for a line, clamped so the
// effective price never goes negative.
func DiscountAmount(l Line) float64 {
	if l.Discount == nil {
		return 0
	}
	var amount float64
	switch l.Discount.Kind {
	case DiscountPercentage:
		amount = l.UnitPrice * l.Discount.Value / 100
	case DiscountFixed:
		amount = l.Discount.Value
	}
	if amount < 0 {
		amount = 0
	}
	if amount > l.UnitPrice {
		amount = l.UnitPrice
	}
	return amount
}

// EffectivePrice is the unit price after the line discount, never negative.
func EffectivePrice(l Line) float64 {
	return l.UnitPrice - DiscountAmount(l)
}

// LineTotal is the effective price multiplied by quantity.
func LineTotal(l Line) float64 {
	if l.Qty <= 0 {
		return 0
	}
	return EffectivePrice(l) * float64(l.Qty)
}

// Compute calculates cart totals for the given tax rate. It is deterministic,
// never mutates its input and carries full float precision; callers round
// with Round2 only where values are persisted or displayed.
func Compute(lines []Line, taxRate float64) Summary {
	var subtotal, discount float64
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		subtotal += LineTotal(l)
		discount += DiscountAmount(l) * float64(l.Qty)
	}
	tax := subtotal * taxRate
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal + tax,
	}
}

// Rounded returns a copy of the summary with every component rounded to
// currency precision.
func (s Summary) Rounded() Summary {
	return Summary{
		Subtotal: Round2(s.Subtotal),
		Tax:      Round2(s.Tax),
		Discount: Round2(s.Discount),
		Total:    Round2(s.Total),
	}
}

// Round2 rounds to two decimal places using round-half-even, the rounding
// applied at every persistence and display boundary.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
