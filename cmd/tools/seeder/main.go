package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/storefront-eng/checkout-api/internal/config"
	"github.com/storefront-eng/checkout-api/internal/inventory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("parse redis url: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	seedCustomers(ctx, pool)
	seedProducts(ctx, pool, redisClient)
	seedCart(ctx, pool)

	log.Println("seeding completed")
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool) {
	customers := []struct {
		Name  string
		Email string
		Tier  string
	}{
		{"Ada Basic", "ada@example.com", "BASE"},
		{"Sam Silver", "sam@example.com", "SILVER"},
		{"Grace Gold", "grace@example.com", "GOLD"},
	}

	log.Println("seeding customers")
	for _, c := range customers {
		if _, err := pool.Exec(ctx, `
			INSERT INTO customers (name, email, tier)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, tier = EXCLUDED.tier
		`, c.Name, c.Email, c.Tier); err != nil {
			log.Printf("seed customer %s: %v", c.Email, err)
		}
	}
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, redisClient *redis.Client) {
	products := []struct {
		Name   string
		Price  string
		Weight string
		Stock  int64
	}{
		{"Mechanical Keyboard", "100.00", "1.0", 100},
		{"4K Monitor", "300.00", "4.0", 50},
		{"USB-C Cable", "12.50", "0.1", 200},
	}

	stock := &inventory.RedisStore{Client: redisClient}

	log.Println("seeding products")
	for _, p := range products {
		var id uuid.UUID
		err := pool.QueryRow(ctx, `
			INSERT INTO products (name, price, weight)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price, weight = EXCLUDED.weight
			RETURNING id
		`, p.Name, p.Price, p.Weight).Scan(&id)
		if err != nil {
			log.Printf("seed product %s: %v", p.Name, err)
			continue
		}
		if err := stock.SetStock(ctx, id, p.Stock); err != nil {
			log.Printf("seed stock for %s: %v", p.Name, err)
		}
	}
}

func seedCart(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("seeding demo cart")
	var customerID string
	if err := pool.QueryRow(ctx,
		`SELECT id FROM customers WHERE email = 'ada@example.com'`,
	).Scan(&customerID); err != nil {
		log.Printf("skip cart seed, customer missing: %v", err)
		return
	}

	var cartID string
	if err := pool.QueryRow(ctx, `
		INSERT INTO carts (customer_id, status) VALUES ($1, 'OPEN') RETURNING id
	`, customerID).Scan(&cartID); err != nil {
		log.Printf("seed cart: %v", err)
		return
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_id, qty, position)
		SELECT $1, id, 1, row_number() OVER (ORDER BY name)
		FROM products
	`, cartID); err != nil {
		log.Printf("seed cart items: %v", err)
		return
	}
	log.Printf("demo cart %s ready for customer %s", cartID, customerID)
}
