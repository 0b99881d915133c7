// Package loyalty accrues points for completed sales through an asynq-backed
// task queue. Accrual is best effort from the checkout engine's point of view:
// the sale is already durable when a task is enqueued, and a lost task costs
// points, never money or stock.
package loyalty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskAccrue is the asynq task type for point accrual.
const TaskAccrue = "loyalty:accrue"

// QueueName separates loyalty work from other background tasks.
const QueueName = "loyalty"

// AccruePayload carries one accrual through the queue. SaleNumber doubles as
// the deduplication key so redelivery never grants points twice. Total is the
// sale amount added to the customer's lifetime spend alongside the points.
type AccruePayload struct {
	CustomerID string  `json:"customerId"`
	SaleNumber string  `json:"saleNumber"`
	Points     int     `json:"points"`
	Total      float64 `json:"total"`
}

// NewAccrueTask encodes the payload into an asynq task.
func NewAccrueTask(p AccruePayload) (*asynq.Task, error) {
	if p.CustomerID == "" || p.SaleNumber == "" {
		return nil, errors.New("loyalty: customer and sale number are required")
	}
	if p.Points <= 0 {
		return nil, fmt.Errorf("loyalty: points must be positive, got %d", p.Points)
	}
	if p.Total < 0 {
		return nil, fmt.Errorf("loyalty: total must not be negative, got %v", p.Total)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccrue, raw,
		asynq.Queue(QueueName),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// Enqueuer hands accruals to the task queue. It satisfies the checkout
// engine's accrual port.
type Enqueuer struct {
	Client *asynq.Client
}

func (e *Enqueuer) Accrue(ctx context.Context, customerID, saleNumber string, points int, total float64) error {
	if e == nil || e.Client == nil {
		return errors.New("loyalty: task client not configured")
	}
	task, err := NewAccrueTask(AccruePayload{
		CustomerID: customerID,
		SaleNumber: saleNumber,
		Points:     points,
		Total:      total,
	})
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("loyalty: enqueue accrual for sale %s: %w", saleNumber, err)
	}
	return nil
}
