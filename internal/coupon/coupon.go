package coupon

import (
	"context"

	"kart-checkout/internal/model"
)

// Catalog supplies the coupon definitions offered to a checkout session.
type Catalog interface {
	// ListCoupons returns every catalogue entry in catalogue order.
	// An entry whose kind is outside the supported set fails the whole call
	// with model.ErrUnknownCouponKind.
	ListCoupons(ctx context.Context) ([]model.CouponDefinition, error)
}

// Loader defines the interface for loading catalogue files.
type Loader interface {
	// Load reads a gzipped JSON-lines catalogue and returns its definitions.
	Load(ctx context.Context, filePath string) ([]model.CouponDefinition, error)
}

// OrderContext is the order a coupon is evaluated against: the lines resolved
// so far and their summed amount.
type OrderContext struct {
	Lines  []model.CartLine
	Amount int64
}

// NewOrderContext derives an OrderContext from lines.
func NewOrderContext(lines []model.CartLine) OrderContext {
	var amount int64
	for _, l := range lines {
		amount += l.Amount()
	}
	return OrderContext{Lines: lines, Amount: amount}
}

// IsEmpty reports whether no line has been resolved yet.
func (o OrderContext) IsEmpty() bool {
	return len(o.Lines) == 0
}

// meets reports whether the order amount reaches threshold.
// An empty order never meets any threshold.
func (o OrderContext) meets(threshold int64) bool {
	return !o.IsEmpty() && o.Amount >= threshold
}

// units counts the ordered quantity of productID and the unit price it was ordered at.
func (o OrderContext) units(productID string) (int, int64) {
	var (
		count int
		price int64
	)
	for _, l := range o.Lines {
		if l.ProductID != productID {
			continue
		}
		count += l.Quantity
		price = l.UnitPrice
	}
	return count, price
}
