package repository

import (
	"context"
	"testing"
	"time"

	"kart-checkout/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer and returns a connection pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.EnsureSchema(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func seedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	products := []struct {
		id    string
		name  string
		price int64
	}{
		{"P001", "Chicken breast", 10000},
		{"P002", "Salad kit", 5000},
		{"P003", "Protein bar", 7000},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx, "INSERT INTO products (id, name, price) VALUES ($1, $2, $3)", p.id, p.name, p.price)
		require.NoError(t, err)
	}
}

func insertCartItem(t *testing.T, pool *pgxpool.Pool, productID string, quantity int) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(),
		"INSERT INTO cart_items (product_id, quantity) VALUES ($1, $2) RETURNING id",
		productID, quantity,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
