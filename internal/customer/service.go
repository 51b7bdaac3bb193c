package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storefront-eng/checkout-api/internal/pricing"
)

// ErrNotFound indicates the requested customer could not be located.
var ErrNotFound = errors.New("customer not found")

// Customer is a store customer. Tier is immutable input to pricing.
type Customer struct {
	ID    uuid.UUID    `json:"id"`
	Name  string       `json:"name"`
	Email string       `json:"email"`
	Tier  pricing.Tier `json:"tier"`
}

// Store abstracts customer persistence.
type Store interface {
	ByID(ctx context.Context, id uuid.UUID) (Customer, error)
}

// Service encapsulates customer lookups.
type Service struct {
	Store Store
}

// ByID resolves a customer by id.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) (Customer, error) {
	if s == nil || s.Store == nil {
		return Customer{}, errors.New("customer service not configured")
	}
	return s.Store.ByID(ctx, id)
}

// PGStore is the Postgres-backed customer store.
type PGStore struct {
	Pool *pgxpool.Pool
}

// ByID loads a customer row. A tier value outside the closed set is an
// error, never a silent BASE fallback.
func (s PGStore) ByID(ctx context.Context, id uuid.UUID) (Customer, error) {
	const query = `SELECT id, name, email, tier FROM customers WHERE id = $1`
	var (
		c       Customer
		rawTier string
	)
	if err := s.Pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &rawTier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("load customer: %w", err)
	}
	tier, err := pricing.ParseTier(rawTier)
	if err != nil {
		return Customer{}, fmt.Errorf("customer %s: %w", id, err)
	}
	c.Tier = tier
	return c, nil
}
