package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no product matches the requested id.
var ErrNotFound = errors.New("product not found")

// Product is the public catalog entry. Price is a money amount and Weight
// is in kilograms; both keep exact decimal precision.
type Product struct {
	ID     uuid.UUID       `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Weight decimal.Decimal `json:"weight"`
}

// Store defines the persistence operations the catalog needs.
type Store interface {
	List(ctx context.Context) ([]Product, error)
	ByID(ctx context.Context, id uuid.UUID) (Product, error)
}

// Service serves catalog reads through a Redis cache.
type Service struct {
	Store Store
	Cache *Cache
}

const (
	listCacheKey    = "catalog:products:list"
	detailKeyPrefix = "catalog:products:detail:"
)

// List returns all products, cached as a single entry.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	if s.Cache != nil {
		var cached []Product
		if ok, err := s.Cache.GetJSON(ctx, listCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	products, err := s.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if s.Cache != nil {
		_ = s.Cache.SetJSON(ctx, listCacheKey, products)
	}
	return products, nil
}

// ByID returns a single product, read through the cache.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	key := detailKeyPrefix + id.String()
	if s.Cache != nil {
		var cached Product
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	product, err := s.Store.ByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if s.Cache != nil {
		_ = s.Cache.SetJSON(ctx, key, product)
	}
	return product, nil
}
