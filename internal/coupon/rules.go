package coupon

import (
	"fmt"

	"kart-checkout/internal/clock"
	"kart-checkout/internal/model"
)

// State is a coupon definition bound to an order context.
type State struct {
	Definition model.CouponDefinition
	valid      bool
	discount   int64
}

// ID returns the coupon id.
func (s State) ID() int64 {
	return s.Definition.ID
}

// IsValid reports whether the coupon applies to the bound order.
func (s State) IsValid() bool {
	return s.valid
}

// DiscountAmount returns the discount the coupon grants on the bound order,
// or zero when it does not apply.
func (s State) DiscountAmount() int64 {
	if !s.valid {
		return 0
	}
	return s.discount
}

// RuleSet evaluates coupon definitions for a fixed delivery fee.
type RuleSet struct {
	deliveryFee int64
	clock       clock.Clock
}

// NewRuleSet creates a rule set. clk drives percentage windows and expiry.
func NewRuleSet(deliveryFee int64, clk clock.Clock) *RuleSet {
	return &RuleSet{
		deliveryFee: deliveryFee,
		clock:       clk,
	}
}

// DeliveryFee returns the fee the rule set was built with.
func (r *RuleSet) DeliveryFee() int64 {
	return r.deliveryFee
}

// Bind evaluates def against order. The discount is capped at
// order.Amount + deliveryFee so a payable total can never go negative.
func (r *RuleSet) Bind(def model.CouponDefinition, order OrderContext) (State, error) {
	var (
		valid    bool
		discount int64
	)

	switch def.Kind {
	case model.KindFixedAmount:
		p := def.FixedAmount
		if p == nil {
			return State{}, missingParams(def)
		}
		valid = order.meets(p.Threshold)
		discount = p.Amount

	case model.KindFreeShipping:
		p := def.FreeShipping
		if p == nil {
			return State{}, missingParams(def)
		}
		valid = order.meets(p.Threshold)
		discount = r.deliveryFee

	case model.KindPercentageSale:
		p := def.PercentageSale
		if p == nil {
			return State{}, missingParams(def)
		}
		valid = order.meets(p.Threshold) && p.Window.Contains(r.clock.Now())
		discount = order.Amount * int64(p.Percent) / 100

	case model.KindBuyOneGetOne:
		p := def.BuyOneGetOne
		if p == nil {
			return State{}, missingParams(def)
		}
		units, unitPrice := order.units(p.ProductID)
		valid = p.RequiredQuantity > 0 && units >= p.RequiredQuantity
		discount = unitPrice

	default:
		return State{}, fmt.Errorf("coupon %d: %w: %s", def.ID, model.ErrUnknownCouponKind, def.Kind)
	}

	if def.ExpiresAt != nil && !r.clock.Now().Before(*def.ExpiresAt) {
		valid = false
	}

	return State{
		Definition: def,
		valid:      valid,
		discount:   capDiscount(discount, order.Amount+r.deliveryFee),
	}, nil
}

func capDiscount(discount, ceiling int64) int64 {
	if discount < 0 {
		return 0
	}
	if discount > ceiling {
		return ceiling
	}
	return discount
}

func missingParams(def model.CouponDefinition) error {
	return fmt.Errorf("coupon %d: %w: %s without parameters", def.ID, model.ErrInvalidCoupon, def.Kind)
}
