package analytics_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/analytics"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/repo"
)

type countingSummarySource struct {
	calls   int
	summary repo.SalesSummary
}

func (s *countingSummarySource) SummarizeSales(_ context.Context, from, to time.Time) (repo.SalesSummary, error) {
	s.calls++
	out := s.summary
	out.From, out.To = from, to
	return out, nil
}

func newService(t *testing.T, source analytics.Source) *analytics.Service {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &analytics.Service{
		Store: source,
		Cache: catalog.NewCache(client, time.Minute),
	}
}

func TestSummaryCaches(t *testing.T) {
	source := &countingSummarySource{summary: repo.SalesSummary{SaleCount: 3, GrossTotal: 64.80}}
	svc := newService(t, source)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	first, err := svc.Summary(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, 3, first.SaleCount)

	second, err := svc.Summary(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, first.GrossTotal, second.GrossTotal)
	require.Equal(t, 1, source.calls)
}

func TestSummaryDefaultsToToday(t *testing.T) {
	source := &countingSummarySource{}
	svc := newService(t, source)
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	summary, err := svc.Summary(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), summary.From)
	require.Equal(t, time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), summary.To)
}

func TestSummaryRejectsInvertedRange(t *testing.T) {
	svc := newService(t, &countingSummarySource{})
	from := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.Summary(context.Background(), from, from.Add(-time.Hour))
	require.Error(t, err)
}
