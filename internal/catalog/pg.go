package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore reads products from Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) List(ctx context.Context) ([]Product, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, name, price, weight FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]Product, 0, 16)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Weight); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PGStore) ByID(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, price, weight FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Weight)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}
