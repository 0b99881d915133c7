package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/events"
)

// ErrStockConflict indicates the stock row changed between read and write.
var ErrStockConflict = errors.New("inventory: stock changed concurrently")

// ErrStockNegative rejects an adjustment that would drive stock below zero.
var ErrStockNegative = errors.New("inventory: stock cannot go negative")

// ErrInvalidMovement rejects unknown movement types or zero-delta changes.
var ErrInvalidMovement = errors.New("inventory: invalid movement")

// Store opens transactions over product stock and the movement ledger.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the per-transaction surface the adjustment path needs: a fresh stock
// read, a compare-and-swap stock write, and the audit append.
type Tx interface {
	ProductStock(ctx context.Context, productID string) (int, error)
	UpdateStock(ctx context.Context, productID string, previousQty, delta int) (int, error)
	AppendMovement(ctx context.Context, m Movement) (Movement, error)
}

// Adjustment describes a manual stock correction outside the sale path.
type Adjustment struct {
	ProductID string
	Type      MovementType
	Delta     int
	Reason    string
	ActorID   string
}

// Service applies manual stock movements with the same audit trail the
// checkout engine writes for sales.
type Service struct {
	Store      Store
	Events     *events.Bus
	Logger     zerolog.Logger
	StoreID    string
	MaxRetries int
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) retries() int {
	if s.MaxRetries <= 0 {
		return 3
	}
	return s.MaxRetries
}

// Apply records the adjustment atomically: CAS stock update plus one movement
// row, retried with a fresh read when the stock row moved underneath us.
func (s *Service) Apply(ctx context.Context, adj Adjustment) (Movement, error) {
	if adj.ProductID == "" || adj.ActorID == "" {
		return Movement{}, fmt.Errorf("product and actor are required: %w", ErrInvalidMovement)
	}
	if adj.Delta == 0 {
		return Movement{}, fmt.Errorf("delta must be non-zero: %w", ErrInvalidMovement)
	}
	if !adj.Type.Valid() || adj.Type == MovementSale {
		return Movement{}, fmt.Errorf("movement type %q not allowed here: %w", adj.Type, ErrInvalidMovement)
	}

	var recorded Movement
	err := s.Store.InTx(ctx, func(tx Tx) error {
		for attempt := 0; attempt < s.retries(); attempt++ {
			prev, err := tx.ProductStock(ctx, adj.ProductID)
			if err != nil {
				return err
			}
			next := prev + adj.Delta
			if next < 0 {
				return fmt.Errorf("product %s: %d%+d: %w", adj.ProductID, prev, adj.Delta, ErrStockNegative)
			}
			newQty, err := tx.UpdateStock(ctx, adj.ProductID, prev, adj.Delta)
			if errors.Is(err, ErrStockConflict) {
				continue
			}
			if err != nil {
				return err
			}
			recorded, err = tx.AppendMovement(ctx, Movement{
				ProductID:      adj.ProductID,
				StoreID:        s.StoreID,
				Type:           adj.Type,
				QuantityChange: adj.Delta,
				PreviousQty:    prev,
				NewQty:         newQty,
				Reason:         adj.Reason,
				CreatedBy:      adj.ActorID,
				CreatedAt:      s.now(),
			})
			return err
		}
		return fmt.Errorf("product %s: retries exhausted: %w", adj.ProductID, ErrStockConflict)
	})
	if err != nil {
		return Movement{}, err
	}

	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicStockAdjusted, recorded.ProductID, map[string]any{
			"productId": recorded.ProductID,
			"type":      recorded.Type,
			"change":    recorded.QuantityChange,
			"newQty":    recorded.NewQty,
		}); err != nil {
			s.Logger.Warn().Err(err).Str("product_id", recorded.ProductID).Msg("emit stock adjusted event")
		}
	}
	return recorded, nil
}
