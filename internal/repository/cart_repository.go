package repository

import (
	"context"
	"errors"
	"fmt"

	"kart-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// Lookup resolves one cart item joined with its product's current price.
func (r *cartRepository) Lookup(ctx context.Context, cartItemID int64) (model.CartLine, error) {
	query := `
		SELECT ci.id, ci.product_id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.id = $1
	`

	var line model.CartLine
	err := r.pool.QueryRow(ctx, query, cartItemID).Scan(
		&line.CartItemID,
		&line.ProductID,
		&line.ProductName,
		&line.UnitPrice,
		&line.Quantity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("cart_item_id", cartItemID).Msg("cart item not found")
			return model.CartLine{}, fmt.Errorf("cart item %d: %w", cartItemID, model.ErrCartItemNotFound)
		}
		r.logger.Error().Err(err).Int64("cart_item_id", cartItemID).Msg("failed to query cart item")
		return model.CartLine{}, fmt.Errorf("failed to query cart item: %w", err)
	}

	return line, nil
}
