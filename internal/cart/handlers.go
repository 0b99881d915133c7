package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// ProductSource supplies current product data when a line is added. The price
// captured at that moment becomes the line's frozen unit price.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (repo.Product, error)
}

// Handler exposes session-scoped cart endpoints.
type Handler struct {
	Sessions *Sessions
	Products ProductSource
	TaxRate  float64
}

type addItemInput struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

type setQtyInput struct {
	Qty int `json:"qty"`
}

type discountInput struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

type lineView struct {
	ProductID      string            `json:"productId"`
	UnitPrice      float64           `json:"unitPrice"`
	Qty            int               `json:"qty"`
	Discount       *pricing.Discount `json:"discount,omitempty"`
	EffectivePrice float64           `json:"effectivePrice"`
	LineTotal      float64           `json:"lineTotal"`
}

type cartView struct {
	SessionID string          `json:"sessionId"`
	Lines     []lineView      `json:"lines"`
	Totals    pricing.Summary `json:"totals"`
}

// Routes mounts cart endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/carts", h.Open)
	r.Get("/carts/{sessionID}", h.Show)
	r.Delete("/carts/{sessionID}", h.Cancel)
	r.Post("/carts/{sessionID}/items", h.AddItem)
	r.Put("/carts/{sessionID}/items/{productID}", h.SetQuantity)
	r.Delete("/carts/{sessionID}/items/{productID}", h.RemoveItem)
	r.Put("/carts/{sessionID}/items/{productID}/discount", h.SetDiscount)
	r.Delete("/carts/{sessionID}/items/{productID}/discount", h.ClearDiscount)
}

// Open starts a new checkout session with an empty cart.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	id := h.Sessions.Open()
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"sessionId": id}})
}

// Show renders the cart and its recomputed totals.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(chi.URLParam(r, "sessionID"), c)})
}

// Cancel discards the session and its cart.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Close(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

// AddItem merges a product into the cart, snapshotting its current price.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	var in addItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if in.Qty == 0 {
		in.Qty = 1
	}
	product, err := h.Products.GetProduct(r.Context(), in.ProductID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "product lookup failed", nil)
		return
	}
	if !product.IsActive {
		common.JSONError(w, http.StatusUnprocessableEntity, "PRODUCT_INACTIVE", "product is not sellable", nil)
		return
	}
	if err := c.Add(product.ID, product.Price, in.Qty); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(chi.URLParam(r, "sessionID"), c)})
}

// SetQuantity replaces a line quantity; zero or less removes the line.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	var in setQtyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := c.SetQuantity(chi.URLParam(r, "productID"), in.Qty); err != nil {
		h.writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(chi.URLParam(r, "sessionID"), c)})
}

// RemoveItem drops a line from the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	c.Remove(chi.URLParam(r, "productID"))
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(chi.URLParam(r, "sessionID"), c)})
}

// SetDiscount attaches a percentage or fixed discount to a line.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	var in discountInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	d := &pricing.Discount{Kind: pricing.DiscountKind(in.Kind), Value: in.Value}
	if err := c.SetDiscount(chi.URLParam(r, "productID"), d); err != nil {
		h.writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(chi.URLParam(r, "sessionID"), c)})
}

// ClearDiscount removes the discount from a line.
func (h *Handler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := c.SetDiscount(chi.URLParam(r, "productID"), nil); err != nil {
		h.writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(chi.URLParam(r, "sessionID"), c)})
}

func (h *Handler) cart(w http.ResponseWriter, r *http.Request) (*Cart, bool) {
	if h.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart sessions not configured", nil)
		return nil, false
	}
	c, err := h.Sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "unknown or expired session", nil)
		return nil, false
	}
	return c, true
}

func (h *Handler) view(sessionID string, c *Cart) cartView {
	lines := c.Snapshot()
	views := make([]lineView, 0, len(lines))
	for _, l := range lines {
		views = append(views, lineView{
			ProductID:      l.ProductID,
			UnitPrice:      l.UnitPrice,
			Qty:            l.Qty,
			Discount:       l.Discount,
			EffectivePrice: pricing.Round2(pricing.EffectivePrice(l)),
			LineTotal:      pricing.Round2(pricing.LineTotal(l)),
		})
	}
	return cartView{
		SessionID: sessionID,
		Lines:     views,
		Totals:    pricing.Compute(lines, h.TaxRate).Rounded(),
	}
}

func (h *Handler) writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NewAppError("LINE_NOT_FOUND", "cart line not found", http.StatusNotFound, err))
	case errors.Is(err, ErrInvalidInput):
		common.WriteError(w, common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err))
	default:
		common.WriteError(w, err)
	}
}
