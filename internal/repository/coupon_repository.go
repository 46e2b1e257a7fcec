package repository

import (
	"context"
	"fmt"

	"kart-checkout/internal/coupon"
	"kart-checkout/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// couponRepository implements the CouponRepository interface using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon catalogue.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// ListCoupons reads and decodes the catalogue. A row with an unsupported
// kind fails the whole listing.
func (r *couponRepository) ListCoupons(ctx context.Context) ([]model.CouponDefinition, error) {
	query := `
		SELECT id, code, COALESCE(description, ''), kind, expires_at,
		       COALESCE(threshold, 0), COALESCE(amount, 0), COALESCE(percent, 0),
		       COALESCE(window_start, ''), COALESCE(window_end, ''),
		       COALESCE(product_id, ''), COALESCE(required_quantity, 0)
		FROM coupons
		ORDER BY sort_order, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query coupons")
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	var records []coupon.Record
	for rows.Next() {
		var rec coupon.Record
		err := rows.Scan(
			&rec.ID,
			&rec.Code,
			&rec.Description,
			&rec.Kind,
			&rec.ExpiresAt,
			&rec.Threshold,
			&rec.Amount,
			&rec.Percent,
			&rec.WindowStart,
			&rec.WindowEnd,
			&rec.ProductID,
			&rec.RequiredQuantity,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan coupon row")
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating coupon rows")
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}

	defs, err := coupon.DecodeAll(records)
	if err != nil {
		r.logger.Error().Err(err).Msg("coupon catalogue holds an undecodable row")
		return nil, fmt.Errorf("failed to decode coupons: %w", err)
	}

	r.logger.Debug().Int("count", len(defs)).Msg("coupons listed")

	return defs, nil
}
