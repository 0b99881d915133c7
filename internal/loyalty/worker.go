package loyalty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// DedupTTL bounds how long a processed sale number blocks redelivery. Long
// enough that any sane retry window has closed.
const DedupTTL = 30 * 24 * time.Hour

// Store is the persistence the worker needs: the atomic point grant.
type Store interface {
	AddLoyaltyPoints(ctx context.Context, customerID string, points int, spent float64) (int, error)
}

// Worker applies accrual tasks. One sale number accrues at most once,
// enforced with a SET NX marker in redis.
type Worker struct {
	Store  Store
	Redis  *redis.Client
	Events *events.Bus
	Logger zerolog.Logger
}

// Register mounts the worker's handlers on an asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskAccrue, w.HandleAccrue)
}

// HandleAccrue grants points for one completed sale. Unknown customers skip
// retry: the sale stands regardless, and retrying cannot make the customer
// exist.
func (w *Worker) HandleAccrue(ctx context.Context, task *asynq.Task) error {
	var p AccruePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode accrue payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.CustomerID == "" || p.SaleNumber == "" || p.Points <= 0 || p.Total < 0 {
		return fmt.Errorf("invalid accrue payload %+v: %w", p, asynq.SkipRetry)
	}

	fresh, err := w.reserve(ctx, p.SaleNumber)
	if err != nil {
		return fmt.Errorf("reserve accrual marker for sale %s: %w", p.SaleNumber, err)
	}
	if !fresh {
		obs.LoyaltyAccrualTotal.WithLabelValues("duplicate").Inc()
		w.Logger.Debug().Str("sale_number", p.SaleNumber).Msg("loyalty accrual already applied")
		return nil
	}

	balance, err := w.Store.AddLoyaltyPoints(ctx, p.CustomerID, p.Points, p.Total)
	if err != nil {
		w.release(ctx, p.SaleNumber)
		if errors.Is(err, repo.ErrNotFound) {
			obs.LoyaltyAccrualTotal.WithLabelValues("customer_missing").Inc()
			w.Logger.Warn().
				Str("customer_id", p.CustomerID).
				Str("sale_number", p.SaleNumber).
				Msg("loyalty accrual dropped: customer not found")
			return fmt.Errorf("customer %s not found: %w", p.CustomerID, asynq.SkipRetry)
		}
		obs.LoyaltyAccrualTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("grant %d points to customer %s: %w", p.Points, p.CustomerID, err)
	}

	obs.LoyaltyAccrualTotal.WithLabelValues("applied").Inc()
	w.Logger.Info().
		Str("customer_id", p.CustomerID).
		Str("sale_number", p.SaleNumber).
		Int("points", p.Points).
		Int("balance", balance).
		Msg("loyalty points accrued")

	if w.Events != nil {
		if _, err := w.Events.Emit(ctx, events.TopicLoyaltyAccrued, p.CustomerID, map[string]any{
			"saleNumber": p.SaleNumber,
			"points":     p.Points,
			"balance":    balance,
		}); err != nil {
			w.Logger.Warn().Err(err).Str("sale_number", p.SaleNumber).Msg("emit loyalty accrued event")
		}
	}
	return nil
}

func dedupKey(saleNumber string) string {
	return "loyalty:accrued:" + saleNumber
}

func (w *Worker) reserve(ctx context.Context, saleNumber string) (bool, error) {
	if w.Redis == nil {
		return true, nil
	}
	return w.Redis.SetNX(ctx, dedupKey(saleNumber), time.Now().UTC().Format(time.RFC3339), DedupTTL).Result()
}

func (w *Worker) release(ctx context.Context, saleNumber string) {
	if w.Redis == nil {
		return
	}
	if err := w.Redis.Del(ctx, dedupKey(saleNumber)).Err(); err != nil {
		w.Logger.Warn().Err(err).Str("sale_number", saleNumber).Msg("release accrual marker")
	}
}
