package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgForeignKeyViolation = "23503"

// PGStore is the Postgres-backed cart store.
type PGStore struct {
	Pool *pgxpool.Pool
}

// Create inserts an empty open cart. A missing customer surfaces as ErrNotFound.
func (s PGStore) Create(ctx context.Context, customerID uuid.UUID) (Cart, error) {
	const query = `
		INSERT INTO carts (customer_id, status)
		VALUES ($1, $2)
		RETURNING id`
	crt := Cart{CustomerID: customerID, Status: StatusOpen, Items: []Item{}}
	if err := s.Pool.QueryRow(ctx, query, customerID, StatusOpen).Scan(&crt.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return Cart{}, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
		}
		return Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return crt, nil
}

// ByIDAndCustomer loads the cart and its lines in position order, joined
// with the current product price and weight.
func (s PGStore) ByIDAndCustomer(ctx context.Context, cartID, customerID uuid.UUID) (Cart, error) {
	const cartQuery = `
		SELECT id, customer_id, status
		FROM carts
		WHERE id = $1 AND customer_id = $2`
	var crt Cart
	if err := s.Pool.QueryRow(ctx, cartQuery, cartID, customerID).Scan(&crt.ID, &crt.CustomerID, &crt.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}

	const itemsQuery = `
		SELECT ci.product_id, p.name, ci.qty, p.price, p.weight
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.position`
	rows, err := s.Pool.Query(ctx, itemsQuery, cartID)
	if err != nil {
		return Cart{}, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	crt.Items = []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Qty, &it.UnitPrice, &it.UnitWeight); err != nil {
			return Cart{}, fmt.Errorf("scan cart item: %w", err)
		}
		crt.Items = append(crt.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Cart{}, fmt.Errorf("iterate cart items: %w", err)
	}
	return crt, nil
}

// AddItem inserts a new line at the end of the cart or increments an
// existing line for the same product.
func (s PGStore) AddItem(ctx context.Context, cartID, productID uuid.UUID, qty int64) error {
	const query = `
		INSERT INTO cart_items (cart_id, product_id, qty, position)
		VALUES ($1, $2, $3, COALESCE((SELECT MAX(position) + 1 FROM cart_items WHERE cart_id = $1), 1))
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty`
	if _, err := s.Pool.Exec(ctx, query, cartID, productID, qty); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// RemoveItem deletes the line for the product, if any.
func (s PGStore) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	const query = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`
	if _, err := s.Pool.Exec(ctx, query, cartID, productID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}
