package coupon

import (
	"context"
	"fmt"

	"kart-checkout/internal/model"

	"github.com/rs/zerolog"
)

// loaderCatalog serves the catalogue from a file or object store.
type loaderCatalog struct {
	loader Loader
	path   string
	logger zerolog.Logger
}

// NewLoaderCatalog creates a Catalog that reads path through loader on every call.
func NewLoaderCatalog(loader Loader, path string, logger zerolog.Logger) Catalog {
	return &loaderCatalog{
		loader: loader,
		path:   path,
		logger: logger.With().Str("component", "loader-catalog").Logger(),
	}
}

// ListCoupons loads the catalogue.
func (c *loaderCatalog) ListCoupons(ctx context.Context) ([]model.CouponDefinition, error) {
	defs, err := c.loader.Load(ctx, c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}

	c.logger.Debug().Int("count", len(defs)).Msg("catalogue listed")

	return defs, nil
}
