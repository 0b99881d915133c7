package cart

import (
	"errors"
	"sort"
	"sync"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrNotFound indicates the requested cart or line could not be located.
var ErrNotFound = errors.New("cart: not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("cart: invalid input")

// Cart is the mutable line collection for one checkout session. All mutation
// goes through its methods; Snapshot hands out copies only. The zero value is
// not usable, construct with New.
type Cart struct {
	mu    sync.Mutex
	lines map[string]pricing.Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{lines: make(map[string]pricing.Line)}
}

// Add merges qty units of the product into the cart. Re-adding a product
// increments the existing line instead of duplicating it; the unit price is
// snapshotted on first add and kept on increments.
func (c *Cart) Add(productID string, unitPrice float64, qty int) error {
	if productID == "" {
		return ErrInvalidInput
	}
	if qty <= 0 {
		return ErrInvalidInput
	}
	if unitPrice < 0 {
		return ErrInvalidInput
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[productID]; ok {
		line.Qty += qty
		c.lines[productID] = line
		return nil
	}
	c.lines[productID] = pricing.Line{
		ProductID: productID,
		UnitPrice: unitPrice,
		Qty:       qty,
	}
	return nil
}

// SetQuantity replaces the quantity for a line. A quantity of zero or less
// removes the line.
func (c *Cart) SetQuantity(productID string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	line, ok := c.lines[productID]
	if !ok {
		return ErrNotFound
	}
	if qty <= 0 {
		delete(c.lines, productID)
		return nil
	}
	line.Qty = qty
	c.lines[productID] = line
	return nil
}

// SetDiscount attaches or clears the per-line discount.
func (c *Cart) SetDiscount(productID string, d *pricing.Discount) error {
	if d != nil {
		switch d.Kind {
		case pricing.DiscountPercentage, pricing.DiscountFixed:
		default:
			return ErrInvalidInput
		}
		if d.Value < 0 {
			return ErrInvalidInput
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	line, ok := c.lines[productID]
	if !ok {
		return ErrNotFound
	}
	if d == nil {
		line.Discount = nil
	} else {
		copied := *d
		line.Discount = &copied
	}
	c.lines[productID] = line
	return nil
}

// Remove deletes the line for the product. Removing an absent line is a no-op.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lines, productID)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = make(map[string]pricing.Line)
}

// Len reports the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Snapshot returns an immutable copy of the cart lines ordered by product ID,
// safe for the pricing calculator and checkout to consume while the cart
// continues to be edited.
func (c *Cart) Snapshot() []pricing.Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]pricing.Line, 0, len(c.lines))
	for _, line := range c.lines {
		if line.Discount != nil {
			copied := *line.Discount
			line.Discount = &copied
		}
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
