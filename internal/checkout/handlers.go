package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/inventory"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/tender"
)

// ReceiptReader loads a committed sale with its lines for the receipt view.
type ReceiptReader interface {
	ReceiptByNumber(ctx context.Context, number string) (Receipt, bool, error)
}

// CartSource hands the handler a frozen copy of a session's cart, and drops
// the session once its sale has committed.
type CartSource interface {
	Snapshot(sessionID string) ([]pricing.Line, error)
	Drop(sessionID string)
}

// Handler exposes the checkout commit and receipt endpoints.
type Handler struct {
	Svc      *Service
	Carts    CartSource
	Receipts ReceiptReader
	Idem     common.Idem
	Validate *validator.Validate
}

// Input is the commit payload. Number is the idempotency key; clients retrying
// a failed commit must resend the number from the first attempt.
type Input struct {
	SessionID  string          `json:"sessionId" validate:"required"`
	Number     string          `json:"number"`
	CustomerID *string         `json:"customerId"`
	CashierID  string          `json:"cashierId" validate:"required"`
	Tenders    []tender.Tender `json:"tenders" validate:"required,min=1,dive"`
}

// Commit reconciles the tenders and commits the sale. On success the session
// cart is cleared; on failure it is left intact so the cashier can correct and
// retry.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Carts == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout not configured", nil)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "missing or invalid fields", err.Error())
			return
		}
	}
	lines, err := h.Carts.Snapshot(in.SessionID)
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "unknown or expired session", nil)
		return
	}

	// Fast-path duplicate guard; the durable check is the unique sale number.
	var reserved bool
	if in.Number != "" {
		var rerr error
		reserved, rerr = h.Idem.Reserve(r.Context(), in.Number)
		if rerr == nil && !reserved {
			if receipt, found, ferr := h.receipt(r.Context(), in.Number); ferr == nil && found {
				receipt.Duplicate = true
				common.JSON(w, http.StatusOK, map[string]any{"data": receipt})
				return
			}
		}
	}

	receipt, err := h.Svc.Commit(r.Context(), Request{
		Number:     in.Number,
		Lines:      lines,
		CustomerID: in.CustomerID,
		CashierID:  in.CashierID,
		Tenders:    in.Tenders,
	})
	if err != nil {
		// Only a reservation this request took may be released; another
		// in-flight request's claim is not ours to free.
		if reserved {
			_ = h.Idem.Release(r.Context(), in.Number)
		}
		h.writeError(w, err)
		return
	}

	h.Carts.Drop(in.SessionID)
	status := http.StatusCreated
	if receipt.Duplicate {
		status = http.StatusOK
	}
	common.JSON(w, status, map[string]any{"data": receipt})
}

// Show returns the receipt for a committed sale.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	if h.Receipts == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "receipt reader not configured", nil)
		return
	}
	number := chi.URLParam(r, "number")
	receipt, found, err := h.receipt(r.Context(), number)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	if !found {
		common.JSONError(w, http.StatusNotFound, "SALE_NOT_FOUND", "sale not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": receipt})
}

func (h *Handler) receipt(ctx context.Context, number string) (Receipt, bool, error) {
	if h.Receipts == nil {
		return Receipt{}, false, errors.New("receipt reader not configured")
	}
	return h.Receipts.ReceiptByNumber(ctx, number)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	common.WriteError(w, appError(err))
}

// appError maps commit failures onto the canonical error taxonomy.
func appError(err error) *common.AppError {
	var rejection *tender.Rejection
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &rejection):
		return &common.AppError{
			Code:       "TENDER_REJECTED",
			Message:    rejection.Reason,
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
			Details:    rejection,
		}
	case errors.Is(err, ErrEmptyCart):
		return common.NewAppError("EMPTY_CART", "cart has no lines", http.StatusBadRequest, err)
	case errors.Is(err, ErrMissingCashier):
		return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
	case errors.As(err, &insufficient):
		return &common.AppError{
			Code:       "INSUFFICIENT_STOCK",
			Message:    insufficient.Error(),
			HTTPStatus: http.StatusConflict,
			Err:        err,
			Details: map[string]any{
				"productId": insufficient.ProductID,
				"available": insufficient.Available,
				"requested": insufficient.Requested,
			},
		}
	case errors.Is(err, inventory.ErrStockConflict):
		return common.NewAppError("STOCK_CONFLICT", "stock changed concurrently, retry the checkout", http.StatusConflict, err)
	default:
		return common.NewAppError("STORAGE_ERROR", "checkout could not be committed, cart preserved", http.StatusServiceUnavailable, err)
	}
}
