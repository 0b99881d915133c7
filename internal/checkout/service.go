package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/inventory"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/tender"
)

// ErrEmptyCart rejects a commit with no lines before anything is persisted.
var ErrEmptyCart = errors.New("checkout: cart is empty")

// ErrMissingCashier rejects a commit without an acting cashier.
var ErrMissingCashier = errors.New("checkout: cashier is required")

// InsufficientStockError reports a line that cannot be fulfilled from current
// stock. The whole commit unit fails; nothing partial is left behind.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("checkout: product %s has %d in stock, %d requested", e.ProductID, e.Available, e.Requested)
}

// Store opens the all-or-nothing transaction the commit sequence runs in.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the transactional surface of one commit unit: sale header and line
// writes, fresh stock reads, compare-and-swap decrements, and the movement
// ledger append. Everything either commits together or rolls back together.
type Tx interface {
	SaleByNumber(ctx context.Context, number string) (Sale, bool, error)
	InsertSale(ctx context.Context, s Sale) (string, error)
	InsertSaleLines(ctx context.Context, lines []SaleLine) error
	ProductStock(ctx context.Context, productID string) (int, error)
	UpdateStock(ctx context.Context, productID string, previousQty, delta int) (int, error)
	AppendMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error)
}

// LoyaltyAccruer grants points and records the spend after a committed sale.
// Best effort: failures are logged, never surfaced, and never roll back the
// sale.
type LoyaltyAccruer interface {
	Accrue(ctx context.Context, customerID, saleNumber string, points int, total float64) error
}

// Request is one commit attempt: a cart snapshot plus the proposed tender
// set. Number doubles as the idempotency key; when the caller leaves it empty
// the service generates one, but retries of a failed commit must reuse the
// number they were given.
type Request struct {
	Number     string
	Lines      []pricing.Line
	CustomerID *string
	CashierID  string
	Tenders    []tender.Tender
}

// Service is the checkout orchestrator. It validates, reconciles tenders,
// and drives the commit sequence inside a single storage transaction.
type Service struct {
	Store      Store
	Events     *events.Bus
	Loyalty    LoyaltyAccruer
	Logger     zerolog.Logger
	TaxRate    float64
	StoreID    string
	MaxRetries int
	NumberFn   func() string
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) number() string {
	if s.NumberFn != nil {
		return s.NumberFn()
	}
	return "TXN-" + uuid.NewString()
}

func (s *Service) retries() int {
	if s.MaxRetries <= 0 {
		return 3
	}
	return s.MaxRetries
}

// Commit turns the cart snapshot into a durable sale. The sequence appears
// atomic to any observer of sales and stock: sale header, sale lines, per-line
// stock decrement and movement append all ride one transaction. Stock
// conflicts retry with a fresh read up to MaxRetries; validation failures and
// tender rejections return before any write. A request whose number already
// committed short-circuits to the existing sale.
func (s *Service) Commit(ctx context.Context, req Request) (Receipt, error) {
	if s == nil || s.Store == nil {
		return Receipt{}, errors.New("checkout service not configured")
	}
	if len(req.Lines) == 0 {
		return Receipt{}, ErrEmptyCart
	}
	if req.CashierID == "" {
		return Receipt{}, ErrMissingCashier
	}

	state := StateReconciling
	s.Logger.Debug().
		Str("state", string(state)).
		Int("lines", len(req.Lines)).
		Int("tenders", len(req.Tenders)).
		Msg("checkout state")
	summary := pricing.Compute(req.Lines, s.TaxRate).Rounded()
	result, rejection := tender.Reconcile(req.Tenders, summary.Total)
	if rejection != nil {
		obs.CheckoutTotal.WithLabelValues("rejected").Inc()
		return Receipt{}, rejection
	}

	number := req.Number
	if number == "" {
		number = s.number()
	}

	state = StateCommitting
	s.Logger.Debug().
		Str("state", string(state)).
		Str("sale_number", number).
		Msg("checkout state")
	var receipt Receipt
	err := s.Store.InTx(ctx, func(tx Tx) error {
		existing, found, err := tx.SaleByNumber(ctx, number)
		if err != nil {
			return err
		}
		if found {
			receipt = Receipt{Sale: existing, Duplicate: true}
			return nil
		}

		sale := Sale{
			Number:         number,
			CustomerID:     req.CustomerID,
			CashierID:      req.CashierID,
			StoreID:        s.StoreID,
			Subtotal:       summary.Subtotal,
			TaxAmount:      summary.Tax,
			DiscountAmount: summary.Discount,
			TotalAmount:    summary.Total,
			Tenders:        req.Tenders,
			PaymentStatus:  PaymentCompleted,
			Status:         SaleActive,
			CreatedAt:      s.now(),
		}
		saleID, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		sale.ID = saleID

		lines := make([]SaleLine, 0, len(req.Lines))
		for _, l := range req.Lines {
			lines = append(lines, SaleLine{
				SaleID:         saleID,
				ProductID:      l.ProductID,
				Qty:            l.Qty,
				UnitPrice:      pricing.Round2(l.UnitPrice),
				DiscountAmount: pricing.Round2(pricing.DiscountAmount(l) * float64(l.Qty)),
				LineTotal:      pricing.Round2(pricing.LineTotal(l)),
			})
		}
		if err := tx.InsertSaleLines(ctx, lines); err != nil {
			return fmt.Errorf("insert sale lines: %w", err)
		}

		for _, l := range lines {
			prev, newQty, err := s.decrement(ctx, tx, l.ProductID, l.Qty)
			if err != nil {
				return err
			}
			if _, err := tx.AppendMovement(ctx, inventory.Movement{
				ProductID:      l.ProductID,
				StoreID:        s.StoreID,
				Type:           inventory.MovementSale,
				QuantityChange: -l.Qty,
				PreviousQty:    prev,
				NewQty:         newQty,
				ReferenceID:    saleID,
				CreatedBy:      req.CashierID,
				CreatedAt:      s.now(),
			}); err != nil {
				return fmt.Errorf("append movement: %w", err)
			}
		}

		receipt = Receipt{Sale: sale, Lines: lines, Change: result.Change}
		return nil
	})
	if err != nil {
		state = StateFailed
		s.Logger.Error().Err(err).
			Str("sale_number", number).
			Str("state", string(state)).
			Msg("checkout commit failed")
		obs.CheckoutTotal.WithLabelValues(failureLabel(err)).Inc()
		if s.Events != nil {
			if _, eerr := s.Events.Emit(ctx, events.TopicSaleFailed, number, map[string]any{
				"reason": failureLabel(err),
			}); eerr != nil {
				s.Logger.Debug().Err(eerr).Str("sale_number", number).Msg("emit sale failed event")
			}
		}
		return Receipt{}, err
	}

	state = StateCommitted
	if receipt.Duplicate {
		obs.CheckoutTotal.WithLabelValues("duplicate").Inc()
		return receipt, nil
	}
	obs.CheckoutTotal.WithLabelValues("committed").Inc()
	s.Logger.Info().
		Str("sale_number", receipt.Sale.Number).
		Str("state", string(state)).
		Float64("total", receipt.Sale.TotalAmount).
		Int("lines", len(receipt.Lines)).
		Msg("checkout committed")

	s.afterCommit(ctx, receipt)
	return receipt, nil
}

// afterCommit runs the best-effort tail of the sequence: the domain event and
// loyalty accrual. Neither can fail the sale at this point.
func (s *Service) afterCommit(ctx context.Context, receipt Receipt) {
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicSaleCompleted, receipt.Sale.ID, map[string]any{
			"saleNumber": receipt.Sale.Number,
			"total":      receipt.Sale.TotalAmount,
			"lines":      len(receipt.Lines),
		}); err != nil {
			s.Logger.Warn().Err(err).Str("sale_number", receipt.Sale.Number).Msg("emit sale completed event")
		}
	}
	if s.Loyalty != nil && receipt.Sale.CustomerID != nil && *receipt.Sale.CustomerID != "" {
		points := int(math.Floor(receipt.Sale.TotalAmount))
		if points > 0 {
			if err := s.Loyalty.Accrue(ctx, *receipt.Sale.CustomerID, receipt.Sale.Number, points, receipt.Sale.TotalAmount); err != nil {
				obs.LoyaltyAccrualTotal.WithLabelValues("enqueue_failed").Inc()
				s.Logger.Warn().Err(err).
					Str("sale_number", receipt.Sale.Number).
					Str("customer_id", *receipt.Sale.CustomerID).
					Msg("loyalty accrual failed")
			}
		}
	}
}

// decrement re-reads stock immediately before each attempt and applies a
// compare-and-swap decrement, retrying on conflict with the fresh reading.
func (s *Service) decrement(ctx context.Context, tx Tx, productID string, qty int) (prev, newQty int, err error) {
	for attempt := 0; attempt < s.retries(); attempt++ {
		prev, err = tx.ProductStock(ctx, productID)
		if err != nil {
			return 0, 0, fmt.Errorf("read stock for %s: %w", productID, err)
		}
		if prev < qty {
			return 0, 0, &InsufficientStockError{ProductID: productID, Available: prev, Requested: qty}
		}
		newQty, err = tx.UpdateStock(ctx, productID, prev, -qty)
		if errors.Is(err, inventory.ErrStockConflict) {
			obs.StockConflictTotal.Inc()
			continue
		}
		if err != nil {
			return 0, 0, fmt.Errorf("decrement stock for %s: %w", productID, err)
		}
		return prev, newQty, nil
	}
	return 0, 0, fmt.Errorf("product %s: decrement retries exhausted: %w", productID, inventory.ErrStockConflict)
}

func failureLabel(err error) string {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return "insufficient_stock"
	case errors.Is(err, inventory.ErrStockConflict):
		return "stock_conflict"
	default:
		return "storage_error"
	}
}
