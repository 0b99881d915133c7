package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pos/internal/common"
)

// MovementReader lists the audit ledger for one product.
type MovementReader interface {
	Movements(ctx context.Context, productID string, limit int) ([]Movement, error)
}

// Handler exposes the manual stock adjustment endpoint and the movement
// ledger.
type Handler struct {
	Svc       *Service
	Movements MovementReader
}

type adjustmentInput struct {
	ProductID string `json:"productId"`
	Type      string `json:"type"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
	ActorID   string `json:"actorId"`
}

// Adjust applies a manual stock movement and returns the recorded audit row.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "inventory service not configured", nil)
		return
	}
	var in adjustmentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	movement, err := h.Svc.Apply(r.Context(), Adjustment{
		ProductID: in.ProductID,
		Type:      MovementType(in.Type),
		Delta:     in.Delta,
		Reason:    in.Reason,
		ActorID:   in.ActorID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": movement})
}

// ListMovements returns the ledger for one product, newest first.
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	if h.Movements == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "movement reader not configured", nil)
		return
	}
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product id is required", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.Movements.Movements(r.Context(), productID, limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": movements})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidMovement):
		common.WriteError(w, common.NewAppError("INVALID_MOVEMENT", err.Error(), http.StatusBadRequest, err))
	case errors.Is(err, ErrStockNegative):
		common.WriteError(w, common.NewAppError("STOCK_NEGATIVE", err.Error(), http.StatusUnprocessableEntity, err))
	case errors.Is(err, ErrStockConflict):
		common.WriteError(w, common.NewAppError("STOCK_CONFLICT", err.Error(), http.StatusConflict, err))
	default:
		common.WriteError(w, err)
	}
}
