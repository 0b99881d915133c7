package checkout_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/checkout"
	"github.com/noah-isme/backend-pos/internal/common"
)

// memReceipts adapts memStore to the receipt lookup the handler needs.
type memReceipts struct{ s *memStore }

func (m memReceipts) ReceiptByNumber(_ context.Context, number string) (checkout.Receipt, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sale, ok := m.s.sales[number]
	if !ok {
		return checkout.Receipt{}, false, nil
	}
	return checkout.Receipt{Sale: sale, Lines: m.s.lines[sale.ID]}, true, nil
}

func newHandler(t *testing.T, store *memStore) (*checkout.Handler, *cart.Sessions) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := cart.NewSessions(time.Hour)
	return &checkout.Handler{
		Svc:      newService(store),
		Carts:    sessions,
		Receipts: memReceipts{s: store},
		Idem:     common.Idem{R: client, TTL: time.Minute},
		Validate: validator.New(),
	}, sessions
}

func commitBody(t *testing.T, sessionID, number string) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"sessionId": sessionID,
		"number":    number,
		"cashierId": "cashier-1",
		"tenders":   []map[string]any{{"kind": "cash", "amount": 25.00}},
	})
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestCommitEndpointHappyPath(t *testing.T) {
	store := newMemStore(map[string]int{"prod-a": 10})
	h, sessions := newHandler(t, store)

	sessionID := sessions.Open()
	c, err := sessions.Get(sessionID)
	require.NoError(t, err)
	require.NoError(t, c.Add("prod-a", 10.00, 2))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout", commitBody(t, sessionID, "TXN-1"))
	h.Commit(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data checkout.Receipt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 21.60, resp.Data.Sale.TotalAmount)
	require.InDelta(t, 3.40, resp.Data.Change, 1e-9)

	// the session is closed and the cart gone
	_, err = sessions.Get(sessionID)
	require.Error(t, err)
}

func TestCommitEndpointUnknownSession(t *testing.T) {
	h, _ := newHandler(t, newMemStore(nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout", commitBody(t, "no-such-session", "TXN-1"))
	h.Commit(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommitEndpointValidation(t *testing.T) {
	h, _ := newHandler(t, newMemStore(nil))

	raw, err := json.Marshal(map[string]any{"sessionId": "s", "cashierId": "c"})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.Commit(rec, httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(raw)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitEndpointDuplicateFastPath(t *testing.T) {
	store := newMemStore(map[string]int{"prod-a": 10})
	h, sessions := newHandler(t, store)

	sessionID := sessions.Open()
	c, err := sessions.Get(sessionID)
	require.NoError(t, err)
	require.NoError(t, c.Add("prod-a", 10.00, 2))

	rec := httptest.NewRecorder()
	h.Commit(rec, httptest.NewRequest(http.MethodPost, "/checkout", commitBody(t, sessionID, "TXN-1")))
	require.Equal(t, http.StatusCreated, rec.Code)

	// same number from a fresh session short-circuits to the existing sale
	secondSession := sessions.Open()
	c2, err := sessions.Get(secondSession)
	require.NoError(t, err)
	require.NoError(t, c2.Add("prod-a", 10.00, 2))

	rec = httptest.NewRecorder()
	h.Commit(rec, httptest.NewRequest(http.MethodPost, "/checkout", commitBody(t, secondSession, "TXN-1")))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data checkout.Receipt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Data.Duplicate)

	require.Len(t, store.sales, 1)
	require.Equal(t, 8, store.stock["prod-a"])
}

func TestCommitEndpointInsufficientStockPreservesCart(t *testing.T) {
	store := newMemStore(map[string]int{"prod-a": 1})
	h, sessions := newHandler(t, store)

	sessionID := sessions.Open()
	c, err := sessions.Get(sessionID)
	require.NoError(t, err)
	require.NoError(t, c.Add("prod-a", 10.00, 2))

	rec := httptest.NewRecorder()
	h.Commit(rec, httptest.NewRequest(http.MethodPost, "/checkout", commitBody(t, sessionID, "TXN-1")))
	require.Equal(t, http.StatusConflict, rec.Code)

	// cart is intact for correction and retry
	c, err = sessions.Get(sessionID)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	require.Equal(t, 1, store.stock["prod-a"])
}

func TestCommitEndpointFailureKeepsOtherReservation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	idem := common.Idem{R: client, TTL: time.Minute}
	held, err := idem.Reserve(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.True(t, held)

	store := newMemStore(map[string]int{"prod-a": 1})
	sessions := cart.NewSessions(time.Hour)
	h := &checkout.Handler{
		Svc:      newService(store),
		Carts:    sessions,
		Receipts: memReceipts{s: store},
		Idem:     idem,
		Validate: validator.New(),
	}

	sessionID := sessions.Open()
	c, err := sessions.Get(sessionID)
	require.NoError(t, err)
	require.NoError(t, c.Add("prod-a", 10.00, 2))

	rec := httptest.NewRecorder()
	h.Commit(rec, httptest.NewRequest(http.MethodPost, "/checkout", commitBody(t, sessionID, "TXN-1")))
	require.Equal(t, http.StatusConflict, rec.Code)

	// the holder's claim is untouched by this request's failed commit
	stillHeld, err := idem.Reserve(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.False(t, stillHeld)
}

func TestShowEndpoint(t *testing.T) {
	store := newMemStore(map[string]int{"prod-a": 10})
	h, sessions := newHandler(t, store)

	sessionID := sessions.Open()
	c, err := sessions.Get(sessionID)
	require.NoError(t, err)
	require.NoError(t, c.Add("prod-a", 10.00, 2))

	rec := httptest.NewRecorder()
	h.Commit(rec, httptest.NewRequest(http.MethodPost, "/checkout", commitBody(t, sessionID, "TXN-9")))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sales/TXN-9", nil)
	req = withURLParam(req, "number", "TXN-9")
	h.Show(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// a plain receipt lookup is not a duplicate commit
	var resp struct {
		Data checkout.Receipt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Data.Duplicate)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/sales/TXN-404", nil)
	req = withURLParam(req, "number", "TXN-404")
	h.Show(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
