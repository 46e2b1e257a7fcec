package checkout

import (
	"slices"

	"kart-checkout/internal/coupon"
	"kart-checkout/internal/model"
)

// graph holds session inputs and the values derived from them.
// Only the owner goroutine touches it.
type graph struct {
	rules *coupon.RuleSet

	// inputs
	lines          []model.CartLine
	failures       []model.LookupFailure
	pending        int
	catalog        []model.CouponDefinition
	catalogPending bool
	catalogErr     error
	selectedID     int64
	hasSelection   bool

	// derived
	order           coupon.OrderContext
	bound           []coupon.State
	available       []coupon.State
	availabilityErr error
	selected        *coupon.State
	totals          model.Totals
	version         uint64
}

func newGraph(rules *coupon.RuleSet, lookups int) *graph {
	g := &graph{
		rules:          rules,
		pending:        lookups,
		catalogPending: true,
	}
	g.recompute()
	return g
}

func (g *graph) addLine(line model.CartLine) {
	g.lines = append(g.lines, line)
	g.pending--
}

func (g *graph) addFailure(f model.LookupFailure) {
	g.failures = append(g.failures, f)
	g.pending--
}

func (g *graph) setCatalog(defs []model.CouponDefinition, err error) {
	g.catalogPending = false
	g.catalog = defs
	g.catalogErr = err
}

// timeSensitive reports whether the clock alone can change the result.
func (g *graph) timeSensitive() bool {
	for _, def := range g.catalog {
		if def.Kind == model.KindPercentageSale || def.ExpiresAt != nil {
			return true
		}
	}
	return false
}

func (g *graph) settled() bool {
	return g.pending == 0 && !g.catalogPending
}

// recompute refreshes every derived node in dependency order and reports
// whether a selection had to be cleared because it stopped applying.
func (g *graph) recompute() (cleared bool) {
	g.order = coupon.NewOrderContext(g.lines)

	g.bound, g.availabilityErr = g.rules.BindAll(g.catalog, g.order)
	if g.availabilityErr != nil {
		g.bound = nil
	}
	g.available = coupon.Valid(g.bound)

	cleared = g.reconcileSelection()
	g.totals = computeTotals(g.order.Amount, g.rules.DeliveryFee(), g.selected)
	g.version++

	return cleared
}

// reconcileSelection rebinds the selection to the fresh available set and
// clears it when the coupon no longer applies.
func (g *graph) reconcileSelection() bool {
	g.selected = nil
	if !g.hasSelection {
		return false
	}

	for i := range g.available {
		if g.available[i].ID() == g.selectedID {
			state := g.available[i]
			g.selected = &state
			return false
		}
	}

	g.hasSelection = false
	g.selectedID = 0
	return true
}

// selectCoupon looks couponID up in the last catalogue binding.
func (g *graph) selectCoupon(couponID int64) (coupon.State, error) {
	if g.availabilityErr != nil {
		return coupon.State{}, g.availabilityErr
	}
	if g.catalogErr != nil {
		return coupon.State{}, g.catalogErr
	}

	idx := slices.IndexFunc(g.bound, func(s coupon.State) bool { return s.ID() == couponID })
	if idx < 0 {
		return coupon.State{}, model.ErrCouponNotFound
	}

	state := g.bound[idx]
	if !state.IsValid() {
		return coupon.State{}, model.ErrCouponNotApplicable
	}

	g.selectedID = couponID
	g.hasSelection = true
	return state, nil
}

func (g *graph) snapshot() *Snapshot {
	snap := &Snapshot{
		Lines:           slices.Clone(g.lines),
		Failures:        slices.Clone(g.failures),
		Pending:         g.pending,
		Available:       slices.Clone(g.available),
		Totals:          g.totals,
		CatalogErr:      g.catalogErr,
		AvailabilityErr: g.availabilityErr,
		Settled:         g.settled(),
		Version:         g.version,
	}
	if g.selected != nil {
		selected := *g.selected
		snap.Selected = &selected
	}
	return snap
}

// computeTotals prices the order. No floor is applied: coupon rules cap
// every discount at orderAmount + deliveryFee.
func computeTotals(orderAmount, deliveryFee int64, selected *coupon.State) model.Totals {
	var discount int64
	if selected != nil {
		discount = selected.DiscountAmount()
	}

	return model.Totals{
		OrderAmount:  orderAmount,
		DeliveryFee:  deliveryFee,
		Discount:     discount,
		PayableTotal: orderAmount + deliveryFee - discount,
	}
}
