package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"kart-checkout/internal/checkout"
	"kart-checkout/internal/coupon"
	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures the checkout service.
type Options struct {
	Session    checkout.Config
	SessionTTL time.Duration
}

type entry struct {
	session *checkout.Session
	timer   *time.Timer
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	carts    checkout.CartLookup
	catalog  coupon.Catalog
	rules    *coupon.RuleSet
	opts     Options
	observer Observer
	logger   zerolog.Logger

	// base outlives requests; sessions are children of it.
	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

// NewCheckoutService creates a new checkout service. observer may be nil.
func NewCheckoutService(
	carts checkout.CartLookup,
	catalog coupon.Catalog,
	rules *coupon.RuleSet,
	opts Options,
	observer Observer,
	logger zerolog.Logger,
) CheckoutService {
	base, cancel := context.WithCancel(context.Background())

	return &checkoutService{
		carts:    carts,
		catalog:  catalog,
		rules:    rules,
		opts:     opts,
		observer: observer,
		logger:   logger.With().Str("service", "checkout").Logger(),
		base:     base,
		cancel:   cancel,
		sessions: make(map[uuid.UUID]*entry),
	}
}

// Start opens a checkout session for the given cart items.
func (s *checkoutService) Start(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if req == nil || len(req.CartItemIDs) == 0 {
		return nil, model.ErrEmptyOrder
	}

	if s.base.Err() != nil {
		return nil, model.ErrSessionClosed
	}

	opts := []checkout.Option{}
	if s.observer != nil {
		opts = append(opts, checkout.WithObserver(s.observer))
	}

	sess, err := checkout.Start(s.base, req.CartItemIDs, s.carts, s.catalog, s.rules, s.opts.Session, s.logger, opts...)
	if err != nil {
		return nil, err
	}

	id := sess.ID()
	e := &entry{session: sess}

	s.mu.Lock()
	if s.base.Err() != nil {
		s.mu.Unlock()
		sess.Close()
		return nil, model.ErrSessionClosed
	}
	if s.opts.SessionTTL > 0 {
		e.timer = time.AfterFunc(s.opts.SessionTTL, func() { s.expire(id) })
	}
	s.sessions[id] = e
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.SessionOpened()
	}

	s.logger.Info().
		Str("session_id", id.String()).
		Int("cart_items", len(req.CartItemIDs)).
		Msg("checkout opened")

	return toResponse(id, sess.Snapshot()), nil
}

// Get returns the current state of a session.
func (s *checkoutService) Get(ctx context.Context, id uuid.UUID, wait bool) (*model.CheckoutResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	if !wait {
		return toResponse(id, sess.Snapshot()), nil
	}

	snap, err := sess.Wait(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	return toResponse(id, snap), nil
}

// SelectCoupon makes a coupon the active selection of a session.
func (s *checkoutService) SelectCoupon(ctx context.Context, id uuid.UUID, req *model.SelectCouponRequest) (*model.CheckoutResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	if err := sess.Select(ctx, req.CouponID); err != nil {
		s.logger.Debug().
			Str("session_id", id.String()).
			Int64("coupon_id", req.CouponID).
			Err(err).
			Msg("coupon selection failed")
		return nil, err
	}

	return toResponse(id, sess.Snapshot()), nil
}

// Watch streams every new state of a session.
func (s *checkoutService) Watch(ctx context.Context, id uuid.UUID) (<-chan *model.CheckoutResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	snaps, err := sess.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan *model.CheckoutResponse)
	go func() {
		defer close(out)
		for {
			select {
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				select {
				case out <- toResponse(id, snap):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close tears a session down.
func (s *checkoutService) Close(ctx context.Context, id uuid.UUID) error {
	e := s.remove(id)
	if e == nil {
		return model.ErrSessionNotFound
	}

	s.closeEntry(e)
	s.logger.Info().Str("session_id", id.String()).Msg("checkout closed")

	return nil
}

// Shutdown closes every open session.
func (s *checkoutService) Shutdown() {
	s.mu.Lock()
	s.cancel()
	entries := make([]*entry, 0, len(s.sessions))
	for id, e := range s.sessions {
		entries = append(entries, e)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, e := range entries {
		s.closeEntry(e)
	}

	s.logger.Info().Int("sessions_closed", len(entries)).Msg("checkout service shut down")
}

// lookup returns an open session and pushes its expiry back.
func (s *checkoutService) lookup(id uuid.UUID) (*checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	if e.timer != nil {
		e.timer.Reset(s.opts.SessionTTL)
	}

	return e.session, nil
}

func (s *checkoutService) remove(id uuid.UUID) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil
	}
	delete(s.sessions, id)

	return e
}

func (s *checkoutService) expire(id uuid.UUID) {
	e := s.remove(id)
	if e == nil {
		return
	}

	s.closeEntry(e)
	s.logger.Info().Str("session_id", id.String()).Msg("checkout session expired")
}

func (s *checkoutService) closeEntry(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.session.Close()

	if s.observer != nil {
		s.observer.SessionClosed()
	}
}

func toResponse(id uuid.UUID, snap checkout.Snapshot) *model.CheckoutResponse {
	resp := &model.CheckoutResponse{
		ID:               id,
		Lines:            make([]model.CartLine, len(snap.Lines)),
		Failures:         make([]model.LookupFailure, len(snap.Failures)),
		Pending:          snap.Pending,
		AvailableCoupons: make([]model.CouponView, 0, len(snap.Available)),
		Totals:           snap.Totals,
		Version:          snap.Version,
	}
	copy(resp.Lines, snap.Lines)
	copy(resp.Failures, snap.Failures)

	for _, st := range snap.Available {
		resp.AvailableCoupons = append(resp.AvailableCoupons, toCouponView(st))
	}

	if snap.Selected != nil {
		view := toCouponView(*snap.Selected)
		resp.SelectedCoupon = &view
	}
	if snap.CatalogErr != nil {
		resp.CatalogError = snap.CatalogErr.Error()
	}
	if snap.AvailabilityErr != nil {
		resp.CouponError = snap.AvailabilityErr.Error()
	}

	return resp
}

func toCouponView(st coupon.State) model.CouponView {
	return model.CouponView{
		ID:          st.ID(),
		Code:        st.Definition.Code,
		Description: st.Definition.Description,
		Kind:        st.Definition.Kind.String(),
		Discount:    st.DiscountAmount(),
	}
}
