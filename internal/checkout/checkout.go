// Package checkout prices a checkout session as cart lines and the coupon
// catalogue arrive.
//
// Each Session owns a small fixed dependency graph:
//
//	cart lines ─┐
//	            ├─> available coupons ─> selection ─> totals
//	catalogue ──┘
//
// Fetch results are posted to the session's owner goroutine, which applies
// them one at a time and recomputes every derived value before publishing a
// new Snapshot.
package checkout

import (
	"context"
	"time"

	"kart-checkout/internal/coupon"
	"kart-checkout/internal/model"
)

// CartLookup resolves a single cart item into a priced line.
type CartLookup interface {
	Lookup(ctx context.Context, cartItemID int64) (model.CartLine, error)
}

// Observer receives engine events, typically to feed metrics.
type Observer interface {
	LineResolved()
	LineFailed()
	CatalogLoaded(count int)
	CatalogFailed()
	AvailabilityFailed()
	CouponSelected(kind model.CouponKind)
	SelectionCleared()
}

// Config holds session tuning.
type Config struct {
	// LookupConcurrency bounds in-flight cart lookups per session.
	LookupConcurrency int
	// ReevaluateInterval is how often a session whose catalogue depends on
	// the time of day is recomputed without any new input. Zero disables it.
	ReevaluateInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		LookupConcurrency:  8,
		ReevaluateInterval: 30 * time.Second,
	}
}

// Snapshot is a consistent view of every value in the graph at one version.
type Snapshot struct {
	Lines     []model.CartLine
	Failures  []model.LookupFailure
	Pending   int
	Available []coupon.State
	Selected  *coupon.State
	Totals    model.Totals

	// CatalogErr is set when the catalogue could not be fetched; no coupons are offered.
	CatalogErr error
	// AvailabilityErr is set when the catalogue holds a coupon the rules cannot bind.
	AvailabilityErr error

	// Settled is true once every lookup and the catalogue fetch have finished.
	Settled bool
	Version uint64
}

// OrderAmount returns the summed amount of the resolved lines.
func (s Snapshot) OrderAmount() int64 {
	return s.Totals.OrderAmount
}

type nopObserver struct{}

func (nopObserver) LineResolved()                   {}
func (nopObserver) LineFailed()                     {}
func (nopObserver) CatalogLoaded(int)               {}
func (nopObserver) CatalogFailed()                  {}
func (nopObserver) AvailabilityFailed()             {}
func (nopObserver) CouponSelected(model.CouponKind) {}
func (nopObserver) SelectionCleared()               {}
