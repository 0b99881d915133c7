package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/ratelimit"
)

func newLimiter(t *testing.T) ratelimit.Limiter {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ratelimit.Limiter{Client: client, Prefix: "rl:"}
}

func TestMiddlewareEnforcesLimit(t *testing.T) {
	handler := ratelimit.Handler{
		Limiter: newLimiter(t),
		Config: ratelimit.Config{
			Key:    ratelimit.TerminalKey,
			Window: time.Minute,
			Max:    2,
		},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := handler.Middleware(next)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("X-Terminal-ID", "lane-1")
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	req.Header.Set("X-Terminal-ID", "lane-1")
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMiddlewareKeysAreIndependent(t *testing.T) {
	handler := ratelimit.Handler{
		Limiter: newLimiter(t),
		Config: ratelimit.Config{
			Key:    ratelimit.TerminalKey,
			Window: time.Minute,
			Max:    1,
		},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := handler.Middleware(next)

	for _, lane := range []string{"lane-1", "lane-2"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("X-Terminal-ID", lane)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, lane)
	}
}

func TestMiddlewareFailsOpenWithoutRedis(t *testing.T) {
	handler := ratelimit.Handler{
		Limiter: ratelimit.Limiter{},
		Config: ratelimit.Config{
			Key:    ratelimit.TerminalKey,
			Window: time.Minute,
			Max:    1,
		},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := handler.Middleware(next)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
