package common_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
)

func newIdem(t *testing.T) (common.Idem, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return common.Idem{R: client, TTL: time.Minute}, mr
}

func TestReserveBlocksSecondAttempt(t *testing.T) {
	idem, _ := newIdem(t)

	ok, err := idem.Reserve(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = idem.Reserve(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReleaseAllowsRetry(t *testing.T) {
	idem, _ := newIdem(t)

	ok, err := idem.Reserve(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, idem.Release(context.Background(), "TXN-1"))

	ok, err = idem.Reserve(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReserveExpires(t *testing.T) {
	idem, mr := newIdem(t)

	ok, err := idem.Reserve(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = idem.Reserve(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReserveWithoutRedisFailsOpen(t *testing.T) {
	idem := common.Idem{}
	ok, err := idem.Reserve(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.True(t, ok)
}
