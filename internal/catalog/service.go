// Package catalog serves read-only product lookups for register displays.
// Reads go through a short-lived redis cache so a wall of lanes refreshing
// their product grids does not hammer the database.
package catalog

import (
	"context"
	"fmt"

	"github.com/noah-isme/backend-pos/internal/repo"
)

// Source is the persistence surface the catalog reads from.
type Source interface {
	GetProduct(ctx context.Context, id string) (repo.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]repo.Product, error)
}

// Service answers catalog queries, caching list and detail payloads.
type Service struct {
	Store Source
	Cache *Cache
}

func listKey(limit, offset int) string {
	return fmt.Sprintf("catalog:list:%d:%d", limit, offset)
}

func productKey(id string) string {
	return "catalog:product:" + id
}

// List returns a page of active products.
func (s *Service) List(ctx context.Context, limit, offset int) ([]repo.Product, error) {
	key := listKey(limit, offset)
	var cached []repo.Product
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	products, err := s.Store.ListProducts(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, key, products)
	return products, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id string) (repo.Product, error) {
	key := productKey(id)
	var cached repo.Product
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	product, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return repo.Product{}, err
	}
	_ = s.Cache.SetJSON(ctx, key, product)
	return product, nil
}
