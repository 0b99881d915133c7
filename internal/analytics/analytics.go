// Package analytics answers end-of-day reporting queries over committed
// sales. Results are cached briefly: close-out reports get polled by back
// office dashboards, and the numbers only move when a sale commits.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// Source is the aggregate query the service runs.
type Source interface {
	SummarizeSales(ctx context.Context, from, to time.Time) (repo.SalesSummary, error)
}

// Service computes sales summaries with a short-lived cache in front.
type Service struct {
	Store Source
	Cache *catalog.Cache
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func summaryKey(from, to time.Time) string {
	return fmt.Sprintf("analytics:sales:%d:%d", from.Unix(), to.Unix())
}

// Summary aggregates sales in [from, to). A zero range defaults to today.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (repo.SalesSummary, error) {
	if from.IsZero() || to.IsZero() {
		now := s.now()
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		to = from.Add(24 * time.Hour)
	}
	if !to.After(from) {
		return repo.SalesSummary{}, fmt.Errorf("analytics: range end %s not after start %s", to, from)
	}

	key := summaryKey(from, to)
	var cached repo.SalesSummary
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	summary, err := s.Store.SummarizeSales(ctx, from, to)
	if err != nil {
		return repo.SalesSummary{}, err
	}
	_ = s.Cache.SetJSON(ctx, key, summary)
	return summary, nil
}
