package inventory

import "time"

// MovementType classifies why a stock quantity changed.
type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementAdjustment MovementType = "adjustment"
	MovementShrinkage  MovementType = "shrinkage"
	MovementSpoilage   MovementType = "spoilage"
	MovementTransfer   MovementType = "transfer"
	MovementPurchase   MovementType = "purchase"
)

// Valid reports whether the movement type is known.
func (t MovementType) Valid() bool {
	switch t {
	case MovementSale, MovementAdjustment, MovementShrinkage, MovementSpoilage, MovementTransfer, MovementPurchase:
		return true
	}
	return false
}

// Movement is one append-only audit record of a stock quantity change.
// Invariant: PreviousQty + QuantityChange == NewQty.
type Movement struct {
	ID             string       `json:"id"`
	ProductID      string       `json:"productId"`
	StoreID        string       `json:"storeId"`
	Type           MovementType `json:"type"`
	QuantityChange int          `json:"quantityChange"`
	PreviousQty    int          `json:"previousQty"`
	NewQty         int          `json:"newQty"`
	Reason         string       `json:"reason,omitempty"`
	ReferenceID    string       `json:"referenceId,omitempty"`
	CreatedBy      string       `json:"createdBy"`
	CreatedAt      time.Time    `json:"createdAt"`
}
