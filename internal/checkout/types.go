package checkout

import (
	"time"

	"github.com/noah-isme/backend-pos/internal/tender"
)

// PaymentStatus tracks the payment lifecycle of a sale.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// SaleStatus tracks the record lifecycle of a sale. Void and return
// transitions are representable but not driven by this engine.
type SaleStatus string

const (
	SaleActive   SaleStatus = "active"
	SaleVoided   SaleStatus = "voided"
	SaleReturned SaleStatus = "returned"
)

// State names the phases of one checkout attempt.
type State string

const (
	StateIdle        State = "idle"
	StateReconciling State = "reconciling"
	StateCommitting  State = "committing"
	StateCommitted   State = "committed"
	StateFailed      State = "failed"
)

// Sale is the durable header of a committed checkout. Monetary amounts are
// rounded to currency precision before it is proposed to storage; the record
// is immutable afterwards except for status transitions.
type Sale struct {
	ID             string          `json:"id"`
	Number         string          `json:"number"`
	CustomerID     *string         `json:"customerId,omitempty"`
	CashierID      string          `json:"cashierId"`
	StoreID        string          `json:"storeId"`
	Subtotal       float64         `json:"subtotal"`
	TaxAmount      float64         `json:"taxAmount"`
	DiscountAmount float64         `json:"discountAmount"`
	TotalAmount    float64         `json:"totalAmount"`
	Tenders        []tender.Tender `json:"tenders"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	Status         SaleStatus      `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// SaleLine is one frozen cart line snapshot, created atomically with the Sale
// and never mutated.
type SaleLine struct {
	SaleID         string  `json:"saleId"`
	ProductID      string  `json:"productId"`
	Qty            int     `json:"qty"`
	UnitPrice      float64 `json:"unitPrice"`
	DiscountAmount float64 `json:"discountAmount"`
	LineTotal      float64 `json:"lineTotal"`
}

// Receipt is what a successful (or short-circuited duplicate) commit returns.
type Receipt struct {
	Sale      Sale       `json:"sale"`
	Lines     []SaleLine `json:"lines"`
	Change    float64    `json:"change"`
	Duplicate bool       `json:"duplicate"`
}
