package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"kart-checkout/internal/config"
	"kart-checkout/internal/coupon"
	"kart-checkout/internal/database"
	"kart-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Seeds a development database with products, a cart and a coupon
// catalogue. Connection settings come from the same DB_* variables as the
// API server.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := config.NewLogger(config.LoggerConfig{Level: "info", Format: "console"})

	dbConfig := config.DatabaseConfig{
		Host:            envOr("DB_HOST", "localhost"),
		Port:            5432,
		User:            envOr("DB_USER", "postgres"),
		Password:        envOr("DB_PASSWORD", "postgres"),
		Database:        envOr("DB_NAME", "kartcheckout"),
		MaxConnections:  2,
		MinConnections:  1,
		MaxConnLifetime: 60,
	}

	pool, err := database.NewPool(ctx, dbConfig, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, logger); err != nil {
		return err
	}

	cartItemIDs, err := seed(ctx, pool)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded cart items %v\n", cartItemIDs)
	fmt.Printf("Try: curl -X POST -H 'X-API-Key: $API_KEY' -d '{\"cartItemIds\":%v}' localhost:8080/api/checkouts\n", cartItemIDs)

	return nil
}

func seed(ctx context.Context, pool *pgxpool.Pool) ([]int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	products := []model.Product{
		{ID: "P001", Name: "Mechanical Keyboard", Price: 10000, Category: "Peripherals"},
		{ID: "P002", Name: "Wireless Mouse", Price: 5000, Category: "Peripherals"},
		{ID: "P003", Name: "USB-C Hub", Price: 7000, Category: "Accessories"},
	}
	for _, p := range products {
		_, err := tx.Exec(ctx,
			`INSERT INTO products (id, name, price, category) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`,
			p.ID, p.Name, p.Price, p.Category,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}

	cart := []struct {
		productID string
		quantity  int
	}{
		{"P001", 1},
		{"P002", 2},
	}
	ids := make([]int64, 0, len(cart))
	for _, item := range cart {
		var id int64
		err := tx.QueryRow(ctx,
			"INSERT INTO cart_items (product_id, quantity) VALUES ($1, $2) RETURNING id",
			item.productID, item.quantity,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to seed cart item: %w", err)
		}
		ids = append(ids, id)
	}

	defs := []model.CouponDefinition{
		model.NewFixedAmountCoupon(1, "SAVE1000", 15000, 1000),
		model.NewFreeShippingCoupon(2, "FREESHIP", 50000),
		model.NewPercentageSaleCoupon(3, "DAWN10", 10000, 10, model.TimeWindow{Start: 4 * time.Hour, End: 7 * time.Hour}),
		model.NewBuyOneGetOneCoupon(4, "MOUSE11", "P002", 2),
	}
	batch := &pgx.Batch{}
	for i, rec := range coupon.EncodeAll(defs) {
		batch.Queue(`
			INSERT INTO coupons (id, code, description, kind, expires_at, threshold, amount, percent,
				window_start, window_end, product_id, required_quantity, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.Code, rec.Description, rec.Kind, rec.ExpiresAt, rec.Threshold, rec.Amount, rec.Percent,
			rec.WindowStart, rec.WindowEnd, rec.ProductID, rec.RequiredQuantity, i,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("failed to seed coupons: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit seed data: %w", err)
	}

	return ids, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
