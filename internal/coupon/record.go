package coupon

import (
	"fmt"
	"strings"
	"time"

	"kart-checkout/internal/model"
)

// Record is the flat storage and wire shape of a catalogue entry.
// Kind selects which of the parameter fields are meaningful.
type Record struct {
	ID               int64      `json:"id"`
	Code             string     `json:"code"`
	Description      string     `json:"description,omitempty"`
	Kind             string     `json:"kind"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	Threshold        int64      `json:"threshold,omitempty"`
	Amount           int64      `json:"amount,omitempty"`
	Percent          int        `json:"percent,omitempty"`
	WindowStart      string     `json:"windowStart,omitempty"`
	WindowEnd        string     `json:"windowEnd,omitempty"`
	ProductID        string     `json:"productId,omitempty"`
	RequiredQuantity int        `json:"requiredQuantity,omitempty"`
}

// Decode converts a record into a definition. Kinds outside the supported set
// are reported as model.ErrUnknownCouponKind.
func Decode(rec Record) (model.CouponDefinition, error) {
	def := model.CouponDefinition{
		ID:          rec.ID,
		Code:        rec.Code,
		Description: rec.Description,
		ExpiresAt:   rec.ExpiresAt,
	}

	if rec.Threshold < 0 {
		return model.CouponDefinition{}, invalid(rec, "threshold must not be negative")
	}

	switch strings.ToUpper(strings.TrimSpace(rec.Kind)) {
	case model.KindFixedAmount.String():
		if rec.Amount <= 0 {
			return model.CouponDefinition{}, invalid(rec, "amount must be positive")
		}
		def.Kind = model.KindFixedAmount
		def.FixedAmount = &model.FixedAmount{Threshold: rec.Threshold, Amount: rec.Amount}

	case model.KindFreeShipping.String():
		def.Kind = model.KindFreeShipping
		def.FreeShipping = &model.FreeShipping{Threshold: rec.Threshold}

	case model.KindPercentageSale.String():
		if rec.Percent < 1 || rec.Percent > 100 {
			return model.CouponDefinition{}, invalid(rec, "percent must be between 1 and 100")
		}
		start, err := parseTimeOfDay(rec.WindowStart)
		if err != nil {
			return model.CouponDefinition{}, invalid(rec, err.Error())
		}
		end, err := parseTimeOfDay(rec.WindowEnd)
		if err != nil {
			return model.CouponDefinition{}, invalid(rec, err.Error())
		}
		if start == end {
			return model.CouponDefinition{}, invalid(rec, "window must not be empty")
		}
		def.Kind = model.KindPercentageSale
		def.PercentageSale = &model.PercentageSale{
			Threshold: rec.Threshold,
			Percent:   rec.Percent,
			Window:    model.TimeWindow{Start: start, End: end},
		}

	case model.KindBuyOneGetOne.String():
		if rec.ProductID == "" {
			return model.CouponDefinition{}, invalid(rec, "product ID is required")
		}
		if rec.RequiredQuantity < 1 {
			return model.CouponDefinition{}, invalid(rec, "required quantity must be at least 1")
		}
		def.Kind = model.KindBuyOneGetOne
		def.BuyOneGetOne = &model.BuyOneGetOne{ProductID: rec.ProductID, RequiredQuantity: rec.RequiredQuantity}

	default:
		return model.CouponDefinition{}, fmt.Errorf("coupon %d: %w: %q", rec.ID, model.ErrUnknownCouponKind, rec.Kind)
	}

	return def, nil
}

// DecodeAll decodes records in order and stops at the first failure.
func DecodeAll(recs []Record) ([]model.CouponDefinition, error) {
	defs := make([]model.CouponDefinition, 0, len(recs))
	for _, rec := range recs {
		def, err := Decode(rec)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Encode is the inverse of Decode.
func Encode(def model.CouponDefinition) Record {
	rec := Record{
		ID:          def.ID,
		Code:        def.Code,
		Description: def.Description,
		Kind:        def.Kind.String(),
		ExpiresAt:   def.ExpiresAt,
	}

	switch def.Kind {
	case model.KindFixedAmount:
		rec.Threshold = def.FixedAmount.Threshold
		rec.Amount = def.FixedAmount.Amount
	case model.KindFreeShipping:
		rec.Threshold = def.FreeShipping.Threshold
	case model.KindPercentageSale:
		rec.Threshold = def.PercentageSale.Threshold
		rec.Percent = def.PercentageSale.Percent
		rec.WindowStart = formatTimeOfDay(def.PercentageSale.Window.Start)
		rec.WindowEnd = formatTimeOfDay(def.PercentageSale.Window.End)
	case model.KindBuyOneGetOne:
		rec.ProductID = def.BuyOneGetOne.ProductID
		rec.RequiredQuantity = def.BuyOneGetOne.RequiredQuantity
	}

	return rec
}

// EncodeAll encodes definitions in order.
func EncodeAll(defs []model.CouponDefinition) []Record {
	recs := make([]Record, len(defs))
	for i, def := range defs {
		recs[i] = Encode(def)
	}
	return recs
}

// parseTimeOfDay parses "HH:MM" into an offset from midnight.
func parseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func formatTimeOfDay(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

func invalid(rec Record, reason string) error {
	return fmt.Errorf("coupon %d: %w: %s", rec.ID, model.ErrInvalidCoupon, reason)
}
