package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kart-checkout/internal/coupon"
	"kart-checkout/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CatalogKey is where the encoded catalogue is stored.
const CatalogKey = "catalog:coupons"

// CatalogCache is a read-through Redis cache in front of a coupon.Catalog.
type CatalogCache struct {
	client *redis.Client
	next   coupon.Catalog
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCatalogCache wraps next with a Redis cache. Cache failures degrade to
// reading next directly; they never fail the listing on their own.
func NewCatalogCache(client *redis.Client, next coupon.Catalog, ttl time.Duration, logger zerolog.Logger) *CatalogCache {
	return &CatalogCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger.With().Str("component", "catalog-cache").Logger(),
	}
}

// ListCoupons serves the catalogue from Redis when present, otherwise from
// the wrapped catalogue, populating the cache on the way back.
func (c *CatalogCache) ListCoupons(ctx context.Context) ([]model.CouponDefinition, error) {
	defs, found, err := c.get(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("catalogue cache read failed, reading source")
	}
	if found {
		c.logger.Debug().Int("count", len(defs)).Msg("catalogue served from cache")
		return defs, nil
	}

	defs, err = c.next.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, defs); err != nil {
		c.logger.Warn().Err(err).Msg("failed to populate catalogue cache")
	}

	return defs, nil
}

func (c *CatalogCache) get(ctx context.Context) ([]model.CouponDefinition, bool, error) {
	data, err := c.client.Get(ctx, CatalogKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key %s from redis: %w", CatalogKey, err)
	}

	var records []coupon.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache data for key %s: %w", CatalogKey, err)
	}

	defs, err := coupon.DecodeAll(records)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode cached catalogue: %w", err)
	}

	return defs, true, nil
}

func (c *CatalogCache) set(ctx context.Context, defs []model.CouponDefinition) error {
	data, err := json.Marshal(coupon.EncodeAll(defs))
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", CatalogKey, err)
	}

	if err := c.client.Set(ctx, CatalogKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s in redis: %w", CatalogKey, err)
	}

	return nil
}
