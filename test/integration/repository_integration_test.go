package integration

import (
	"context"
	"testing"
	"time"

	"kart-checkout/internal/cache"
	"kart-checkout/internal/model"
	"kart-checkout/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	repo := repository.NewCartRepository(testDB.Pool, zerolog.Nop())
	ctx := context.Background()

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)
	id := SeedCartItem(t, testDB.Pool, "P002", 3)

	t.Run("Lookup joins product price", func(t *testing.T) {
		line, err := repo.Lookup(ctx, id)
		require.NoError(t, err)

		assert.Equal(t, model.CartLine{
			CartItemID:  id,
			ProductID:   "P002",
			ProductName: "Wireless Mouse",
			UnitPrice:   5000,
			Quantity:    3,
		}, line)
		assert.Equal(t, int64(15000), line.Amount())
	})

	t.Run("Lookup of missing item", func(t *testing.T) {
		_, err := repo.Lookup(ctx, id+1000)
		assert.ErrorIs(t, err, model.ErrCartItemNotFound)
	})
}

func TestCouponCatalog_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	redisClient := SetupTestRedis(t)
	repo := repository.NewCouponRepository(testDB.Pool, zerolog.Nop())
	ctx := context.Background()

	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	sale := model.NewPercentageSaleCoupon(2, "MORNING10", 10000, 10, model.TimeWindow{Start: 4 * time.Hour, End: 7 * time.Hour})
	sale.ExpiresAt = &expires
	defs := []model.CouponDefinition{
		model.NewFixedAmountCoupon(1, "SAVE1000", 15000, 1000),
		sale,
		model.NewFreeShippingCoupon(3, "FREESHIP", 50000),
		model.NewBuyOneGetOneCoupon(4, "MOUSE11", "P002", 2),
	}

	CleanupDB(t, testDB.Pool)
	SeedCoupons(t, testDB.Pool, defs...)

	t.Run("Repository decodes every kind in order", func(t *testing.T) {
		got, err := repo.ListCoupons(ctx)
		require.NoError(t, err)
		require.Len(t, got, 4)

		assert.Equal(t, defs[0], got[0])
		assert.Equal(t, defs[2], got[2])
		assert.Equal(t, defs[3], got[3])
		assert.Equal(t, sale.Kind, got[1].Kind)
		assert.Equal(t, *sale.PercentageSale, *got[1].PercentageSale)
		require.NotNil(t, got[1].ExpiresAt)
		assert.True(t, expires.Equal(*got[1].ExpiresAt))
	})

	t.Run("Cache serves the catalogue after the source changes", func(t *testing.T) {
		require.NoError(t, redisClient.FlushDB(ctx).Err())
		catalog := cache.NewCatalogCache(redisClient, repo, time.Minute, zerolog.Nop())

		first, err := catalog.ListCoupons(ctx)
		require.NoError(t, err)
		require.Len(t, first, 4)

		_, err = testDB.Pool.Exec(ctx, "DELETE FROM coupons")
		require.NoError(t, err)

		second, err := catalog.ListCoupons(ctx)
		require.NoError(t, err)
		assert.Len(t, second, 4)
		assert.Equal(t, first[0], second[0])

		ttl, err := redisClient.TTL(ctx, cache.CatalogKey).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})
}
