package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem reserves idempotency keys in Redis so a retried commit request is
// detected before it reaches storage. The durable guarantee lives in the
// sales table (unique sale number); this is the fast path in front of it.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func idemKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Reserve attempts to claim the key. It returns false when the key is already
// held, meaning an identical request was seen within the TTL window.
func (i Idem) Reserve(ctx context.Context, key string) (bool, error) {
	if i.R == nil || key == "" {
		return true, nil
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return i.R.SetNX(ctx, idemKey(key), "held", ttl).Result()
}

// Release frees a reservation after a failed commit so the operator can retry
// with the same key.
func (i Idem) Release(ctx context.Context, key string) error {
	if i.R == nil || key == "" {
		return nil
	}
	return i.R.Del(ctx, idemKey(key)).Err()
}
