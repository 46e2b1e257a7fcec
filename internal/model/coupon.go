package model

import (
	"fmt"
	"time"
)

// CouponKind enumerates the closed set of supported coupon kinds.
type CouponKind int

const (
	KindFixedAmount CouponKind = iota + 1
	KindFreeShipping
	KindPercentageSale
	KindBuyOneGetOne
)

// String returns the catalogue name of the kind.
func (k CouponKind) String() string {
	switch k {
	case KindFixedAmount:
		return "FIXED_AMOUNT"
	case KindFreeShipping:
		return "FREE_SHIPPING"
	case KindPercentageSale:
		return "PERCENTAGE_SALE"
	case KindBuyOneGetOne:
		return "BUY_ONE_GET_ONE"
	default:
		return fmt.Sprintf("CouponKind(%d)", int(k))
	}
}

// FixedAmount discounts a flat amount once the order reaches Threshold.
type FixedAmount struct {
	Threshold int64 `json:"threshold"`
	Amount    int64 `json:"amount"`
}

// FreeShipping waives the delivery fee once the order reaches Threshold.
type FreeShipping struct {
	Threshold int64 `json:"threshold"`
}

// PercentageSale discounts Percent of the order amount while the clock is inside Window.
type PercentageSale struct {
	Threshold int64      `json:"threshold"`
	Percent   int        `json:"percent"`
	Window    TimeWindow `json:"window"`
}

// BuyOneGetOne makes one unit of ProductID free when RequiredQuantity units are ordered.
type BuyOneGetOne struct {
	ProductID        string `json:"productId"`
	RequiredQuantity int    `json:"requiredQuantity"`
}

// TimeWindow is a daily window expressed as offsets from local midnight.
// An End before Start wraps past midnight.
type TimeWindow struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Contains reports whether t's time of day lies in [Start, End).
func (w TimeWindow) Contains(t time.Time) bool {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)

	if w.Start <= w.End {
		return offset >= w.Start && offset < w.End
	}
	return offset >= w.Start || offset < w.End
}

// CouponDefinition is a catalogue entry. Exactly one of the parameter
// pointers is set and it always matches Kind.
type CouponDefinition struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Kind        CouponKind `json:"-"`

	FixedAmount    *FixedAmount    `json:"fixedAmount,omitempty"`
	FreeShipping   *FreeShipping   `json:"freeShipping,omitempty"`
	PercentageSale *PercentageSale `json:"percentageSale,omitempty"`
	BuyOneGetOne   *BuyOneGetOne   `json:"buyOneGetOne,omitempty"`
}

// NewFixedAmountCoupon builds a FixedAmount definition.
func NewFixedAmountCoupon(id int64, code string, threshold, amount int64) CouponDefinition {
	return CouponDefinition{
		ID:          id,
		Code:        code,
		Kind:        KindFixedAmount,
		FixedAmount: &FixedAmount{Threshold: threshold, Amount: amount},
	}
}

// NewFreeShippingCoupon builds a FreeShipping definition.
func NewFreeShippingCoupon(id int64, code string, threshold int64) CouponDefinition {
	return CouponDefinition{
		ID:           id,
		Code:         code,
		Kind:         KindFreeShipping,
		FreeShipping: &FreeShipping{Threshold: threshold},
	}
}

// NewPercentageSaleCoupon builds a PercentageSale definition.
func NewPercentageSaleCoupon(id int64, code string, threshold int64, percent int, window TimeWindow) CouponDefinition {
	return CouponDefinition{
		ID:             id,
		Code:           code,
		Kind:           KindPercentageSale,
		PercentageSale: &PercentageSale{Threshold: threshold, Percent: percent, Window: window},
	}
}

// NewBuyOneGetOneCoupon builds a BuyOneGetOne definition.
func NewBuyOneGetOneCoupon(id int64, code, productID string, requiredQuantity int) CouponDefinition {
	return CouponDefinition{
		ID:           id,
		Code:         code,
		Kind:         KindBuyOneGetOne,
		BuyOneGetOne: &BuyOneGetOne{ProductID: productID, RequiredQuantity: requiredQuantity},
	}
}
