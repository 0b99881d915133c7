package catalog_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/repo"
)

type countingSource struct {
	products map[string]repo.Product
	gets     int
	lists    int
}

func (s *countingSource) GetProduct(_ context.Context, id string) (repo.Product, error) {
	s.gets++
	p, ok := s.products[id]
	if !ok {
		return repo.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (s *countingSource) ListProducts(context.Context, int, int) ([]repo.Product, error) {
	s.lists++
	result := make([]repo.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}
	return result, nil
}

func newCache(t *testing.T) *catalog.Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Minute)
}

func TestGetCachesProduct(t *testing.T) {
	source := &countingSource{products: map[string]repo.Product{
		"p1": {ID: "p1", SKU: "SKU-1", Name: "Coffee", Price: 4.50, IsActive: true},
	}}
	svc := &catalog.Service{Store: source, Cache: newCache(t)}

	first, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)
	second, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, source.gets)
}

func TestGetMissesAreNotCached(t *testing.T) {
	source := &countingSource{products: map[string]repo.Product{}}
	svc := &catalog.Service{Store: source, Cache: newCache(t)}

	_, err := svc.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, repo.ErrNotFound)
	_, err = svc.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, repo.ErrNotFound)
	require.Equal(t, 2, source.gets)
}

func TestListCaches(t *testing.T) {
	source := &countingSource{products: map[string]repo.Product{
		"p1": {ID: "p1", Name: "Coffee", IsActive: true},
	}}
	svc := &catalog.Service{Store: source, Cache: newCache(t)}

	_, err := svc.List(context.Background(), 50, 0)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), 50, 0)
	require.NoError(t, err)
	require.Equal(t, 1, source.lists)
}

func TestNilCachePassesThrough(t *testing.T) {
	source := &countingSource{products: map[string]repo.Product{
		"p1": {ID: "p1", Name: "Coffee"},
	}}
	svc := &catalog.Service{Store: source, Cache: catalog.NewCache(nil, 0)}

	for i := 0; i < 3; i++ {
		_, err := svc.Get(context.Background(), "p1")
		require.NoError(t, err)
	}
	require.Equal(t, 3, source.gets)
}
