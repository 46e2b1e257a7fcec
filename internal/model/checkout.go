package model

import "github.com/google/uuid"

// Totals is the priced view of a checkout.
type Totals struct {
	OrderAmount  int64 `json:"orderAmount"`
	DeliveryFee  int64 `json:"deliveryFee"`
	Discount     int64 `json:"discount"`
	PayableTotal int64 `json:"payableTotal"`
}

// CheckoutRequest is the payload that opens a checkout session.
type CheckoutRequest struct {
	CartItemIDs []int64 `json:"cartItemIds"`
}

// SelectCouponRequest is the payload for choosing a coupon.
type SelectCouponRequest struct {
	CouponID int64 `json:"couponId"`
}

// CouponView is an applicable coupon as shown to the buyer.
type CouponView struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind"`
	Discount    int64  `json:"discount"`
}

// CheckoutResponse is the externally visible state of a checkout session.
type CheckoutResponse struct {
	ID               uuid.UUID       `json:"id"`
	Lines            []CartLine      `json:"lines"`
	Failures         []LookupFailure `json:"failures"`
	Pending          int             `json:"pending"`
	AvailableCoupons []CouponView    `json:"availableCoupons"`
	SelectedCoupon   *CouponView     `json:"selectedCoupon,omitempty"`
	Totals           Totals          `json:"totals"`
	CatalogError     string          `json:"catalogError,omitempty"`
	CouponError      string          `json:"couponError,omitempty"`
	Version          uint64          `json:"version"`
}
