package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-eng/checkout-api/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located (absent or
// owned by a different customer).
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrClosed is returned when mutating a cart that already checked out.
var ErrClosed = errors.New("cart already checked out")

// Cart statuses.
const (
	StatusOpen       = "OPEN"
	StatusCheckedOut = "CHECKED_OUT"
)

// Item is one cart line. Unit price and weight are snapshots of the
// referenced product, joined in at load time.
type Item struct {
	ProductID  uuid.UUID       `json:"productId"`
	Name       string          `json:"name"`
	Qty        int64           `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	UnitWeight decimal.Decimal `json:"unitWeight"`
}

// Cart is an ordered list of line items owned by a customer, mutable until
// checkout commits.
type Cart struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customerId"`
	Status     string    `json:"status"`
	Items      []Item    `json:"items"`
}

// PricingItems converts cart lines for the pricing engine, preserving line order.
func (c Cart) PricingItems() []pricing.LineItem {
	items := make([]pricing.LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, pricing.LineItem{
			Qty:        it.Qty,
			UnitPrice:  it.UnitPrice,
			UnitWeight: it.UnitWeight,
		})
	}
	return items
}

// Lines returns parallel product id and quantity slices in line order, the
// shape the inventory collaborator consumes.
func (c Cart) Lines() ([]uuid.UUID, []int64) {
	ids := make([]uuid.UUID, 0, len(c.Items))
	qtys := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
		qtys = append(qtys, it.Qty)
	}
	return ids, qtys
}

// Store abstracts cart persistence.
type Store interface {
	Create(ctx context.Context, customerID uuid.UUID) (Cart, error)
	ByIDAndCustomer(ctx context.Context, cartID, customerID uuid.UUID) (Cart, error)
	AddItem(ctx context.Context, cartID, productID uuid.UUID, qty int64) error
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error
}

// Service encapsulates cart domain operations.
type Service struct {
	Store Store
}

// Create opens an empty cart for the customer.
func (s *Service) Create(ctx context.Context, customerID uuid.UUID) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	return s.Store.Create(ctx, customerID)
}

// ByIDAndCustomer loads a cart scoped to its owner. A cart owned by another
// customer is indistinguishable from a missing one.
func (s *Service) ByIDAndCustomer(ctx context.Context, cartID, customerID uuid.UUID) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	return s.Store.ByIDAndCustomer(ctx, cartID, customerID)
}

// AddItem inserts or increments a cart line.
func (s *Service) AddItem(ctx context.Context, cartID, customerID, productID uuid.UUID, qty int64) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	crt, err := s.Store.ByIDAndCustomer(ctx, cartID, customerID)
	if err != nil {
		return err
	}
	if crt.Status != StatusOpen {
		return ErrClosed
	}
	return s.Store.AddItem(ctx, cartID, productID, qty)
}

// RemoveItem removes every line referencing the product. Removing a product
// that is not in the cart is a no-op.
func (s *Service) RemoveItem(ctx context.Context, cartID, customerID, productID uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	crt, err := s.Store.ByIDAndCustomer(ctx, cartID, customerID)
	if err != nil {
		return err
	}
	if crt.Status != StatusOpen {
		return ErrClosed
	}
	return s.Store.RemoveItem(ctx, cartID, productID)
}
