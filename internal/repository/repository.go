package repository

import (
	"context"

	"kart-checkout/internal/model"
)

// CartRepository defines data access for cart items. It satisfies
// checkout.CartLookup.
type CartRepository interface {
	// Lookup resolves one cart item into a priced line.
	// Returns model.ErrCartItemNotFound if the item does not exist.
	Lookup(ctx context.Context, cartItemID int64) (model.CartLine, error)
}

// CouponRepository defines data access for the coupon catalogue. It
// satisfies coupon.Catalog.
type CouponRepository interface {
	// ListCoupons returns every catalogue entry in catalogue order.
	ListCoupons(ctx context.Context) ([]model.CouponDefinition, error)
}
