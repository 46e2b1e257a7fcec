package service

import (
	"context"

	"kart-checkout/internal/checkout"
	"kart-checkout/internal/model"

	"github.com/google/uuid"
)

// CheckoutService defines operations on live checkout sessions.
type CheckoutService interface {
	// Start opens a checkout session for the given cart items.
	Start(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)

	// Get returns the current state of a session. With wait set it blocks
	// until every lookup has settled or ctx is done.
	Get(ctx context.Context, id uuid.UUID, wait bool) (*model.CheckoutResponse, error)

	// SelectCoupon makes a coupon the active selection of a session.
	SelectCoupon(ctx context.Context, id uuid.UUID, req *model.SelectCouponRequest) (*model.CheckoutResponse, error)

	// Watch streams every new state of a session until ctx is done or the
	// session closes. Slow readers skip intermediate states.
	Watch(ctx context.Context, id uuid.UUID) (<-chan *model.CheckoutResponse, error)

	// Close tears a session down.
	Close(ctx context.Context, id uuid.UUID) error

	// Shutdown closes every open session.
	Shutdown()
}

// Observer receives engine and session lifecycle events.
type Observer interface {
	checkout.Observer
	SessionOpened()
	SessionClosed()
}
