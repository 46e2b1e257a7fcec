package checkout

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"kart-checkout/internal/coupon"
	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// event is a state change applied by the owner goroutine.
type event interface{}

type lineResolved struct{ line model.CartLine }

type lineFailed struct{ failure model.LookupFailure }

type catalogFetched struct {
	defs []model.CouponDefinition
	err  error
}

type selectRequest struct {
	couponID int64
	reply    chan error
}

type subscribeRequest struct {
	reply chan chan Snapshot
}

type unsubscribeRequest struct{ ch chan Snapshot }

// Session is one checkout interaction. All mutation happens on a single
// owner goroutine; readers see immutable snapshots.
type Session struct {
	id       uuid.UUID
	carts    CartLookup
	catalog  coupon.Catalog
	cfg      Config
	observer Observer
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan event
	done   chan struct{}
	// settled is closed by the owner once every fetch has reported.
	settled chan struct{}

	current atomic.Pointer[Snapshot]

	// owner-only
	graph       *graph
	subscribers []chan Snapshot
	// mirrors len(subscribers) for readers off the owner goroutine
	subscriberCount atomic.Int32
}

// Option configures a Session.
type Option func(*Session)

// WithObserver attaches an Observer to the session.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithID overrides the generated session id.
func WithID(id uuid.UUID) Option {
	return func(s *Session) {
		s.id = id
	}
}

// Start opens a session for cartItemIDs and begins fetching its cart lines
// and the coupon catalogue. The session lives until Close is called or
// parent is cancelled.
func Start(
	parent context.Context,
	cartItemIDs []int64,
	carts CartLookup,
	catalog coupon.Catalog,
	rules *coupon.RuleSet,
	cfg Config,
	logger zerolog.Logger,
	opts ...Option,
) (*Session, error) {
	if len(cartItemIDs) == 0 {
		return nil, model.ErrEmptyOrder
	}
	if cfg.LookupConcurrency < 1 {
		cfg.LookupConcurrency = DefaultConfig().LookupConcurrency
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:       uuid.New(),
		carts:    carts,
		catalog:  catalog,
		cfg:      cfg,
		observer: nopObserver{},
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan event),
		done:     make(chan struct{}),
		settled:  make(chan struct{}),
		graph:    newGraph(rules, len(cartItemIDs)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.With().Str("session_id", s.id.String()).Logger()
	s.current.Store(s.graph.snapshot())

	s.logger.Info().
		Int("cart_items", len(cartItemIDs)).
		Int64("delivery_fee", rules.DeliveryFee()).
		Msg("checkout session started")

	go s.run()
	go s.fetchLines(cartItemIDs)
	go s.fetchCatalog()

	return s, nil
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Snapshot returns the most recently published state.
func (s *Session) Snapshot() Snapshot {
	return *s.current.Load()
}

// Select makes couponID the active coupon. It fails with
// model.ErrCouponNotFound when the id is not in the catalogue and with
// model.ErrCouponNotApplicable when the coupon does not apply to the order;
// in both cases the previous selection is kept.
func (s *Session) Select(ctx context.Context, couponID int64) error {
	reply := make(chan error, 1)

	select {
	case s.events <- selectRequest{couponID: couponID, reply: reply}:
	case <-s.done:
		return model.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return model.ErrSessionClosed
	}
}

// Subscribe returns a channel carrying every published snapshot, starting
// with the current one. Slow readers only ever miss intermediate versions,
// never the latest. The channel is closed when the session ends or when ctx
// is done, whichever comes first.
func (s *Session) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	reply := make(chan chan Snapshot, 1)

	select {
	case s.events <- subscribeRequest{reply: reply}:
	case <-s.done:
		return nil, model.ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case ch := <-reply:
		go func() {
			select {
			case <-ctx.Done():
				s.post(unsubscribeRequest{ch: ch})
			case <-s.done:
			}
		}()
		return ch, nil
	case <-s.done:
		return nil, model.ErrSessionClosed
	}
}

// Subscribers reports how many subscriptions are currently open.
func (s *Session) Subscribers() int {
	return int(s.subscriberCount.Load())
}

// Wait blocks until every cart lookup and the catalogue fetch have settled.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-s.settled:
		return s.Snapshot(), nil
	case <-s.done:
		return s.Snapshot(), model.ErrSessionClosed
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close tears the session down. In-flight lookups are abandoned and can no
// longer change the session. Close is safe to call more than once.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

func (s *Session) run() {
	defer func() {
		for _, ch := range s.subscribers {
			close(ch)
		}
		s.subscribers = nil
		s.subscriberCount.Store(0)
		close(s.done)
		s.logger.Info().Msg("checkout session closed")
	}()

	var tick <-chan time.Time
	if s.cfg.ReevaluateInterval > 0 {
		ticker := time.NewTicker(s.cfg.ReevaluateInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-tick:
			if s.graph.timeSensitive() {
				s.publish()
			}
		case ev := <-s.events:
			// A send can race with teardown; nothing is applied after it.
			if s.ctx.Err() != nil {
				return
			}
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev event) {
	switch ev := ev.(type) {
	case lineResolved:
		s.graph.addLine(ev.line)
		s.observer.LineResolved()
		s.logger.Debug().
			Int64("cart_item_id", ev.line.CartItemID).
			Int64("line_amount", ev.line.Amount()).
			Msg("cart line resolved")
		s.publish()

	case lineFailed:
		s.graph.addFailure(ev.failure)
		s.observer.LineFailed()
		s.logger.Warn().
			Int64("cart_item_id", ev.failure.CartItemID).
			Str("reason", ev.failure.Reason).
			Msg("cart line lookup failed, continuing without it")
		s.publish()

	case catalogFetched:
		s.graph.setCatalog(ev.defs, ev.err)
		switch {
		case errors.Is(ev.err, model.ErrUnknownCouponKind):
			s.observer.CatalogFailed()
			s.logger.Error().Err(ev.err).Msg("coupon catalogue holds an unsupported coupon kind")
		case ev.err != nil:
			s.observer.CatalogFailed()
			s.logger.Warn().Err(ev.err).Msg("coupon catalogue unavailable, no coupons offered")
		default:
			s.observer.CatalogLoaded(len(ev.defs))
		}
		s.publish()

	case selectRequest:
		state, err := s.graph.selectCoupon(ev.couponID)
		if err != nil {
			s.logger.Debug().Err(err).Int64("coupon_id", ev.couponID).Msg("coupon selection rejected")
			ev.reply <- err
			return
		}
		s.observer.CouponSelected(state.Definition.Kind)
		s.logger.Info().
			Int64("coupon_id", ev.couponID).
			Str("kind", state.Definition.Kind.String()).
			Msg("coupon selected")
		s.publish()
		ev.reply <- nil

	case subscribeRequest:
		ch := make(chan Snapshot, 1)
		ch <- *s.current.Load()
		s.subscribers = append(s.subscribers, ch)
		s.subscriberCount.Store(int32(len(s.subscribers)))
		ev.reply <- ch

	case unsubscribeRequest:
		before := len(s.subscribers)
		s.subscribers = slices.DeleteFunc(s.subscribers, func(c chan Snapshot) bool { return c == ev.ch })
		if len(s.subscribers) < before {
			close(ev.ch)
		}
		s.subscriberCount.Store(int32(len(s.subscribers)))
		s.logger.Debug().Int("subscribers", len(s.subscribers)).Msg("subscriber left")
	}
}

// publish recomputes the graph and hands the result to readers.
func (s *Session) publish() {
	prev := s.current.Load()

	if cleared := s.graph.recompute(); cleared {
		s.observer.SelectionCleared()
		s.logger.Info().Msg("selected coupon no longer applies, selection cleared")
	}

	if err := s.graph.availabilityErr; err != nil && prev.AvailabilityErr == nil {
		s.observer.AvailabilityFailed()
		s.logger.Error().Err(err).Msg("coupon availability could not be computed")
	}

	snap := s.graph.snapshot()
	s.current.Store(snap)

	s.logger.Debug().
		Uint64("version", snap.Version).
		Int64("order_amount", snap.Totals.OrderAmount).
		Int("available_coupons", len(snap.Available)).
		Int64("payable_total", snap.Totals.PayableTotal).
		Int("pending", snap.Pending).
		Msg("checkout recomputed")

	for _, ch := range s.subscribers {
		offerLatest(ch, *snap)
	}

	if snap.Settled && !prev.Settled {
		close(s.settled)
		s.logger.Info().
			Int("lines", len(snap.Lines)).
			Int("failures", len(snap.Failures)).
			Int64("order_amount", snap.Totals.OrderAmount).
			Msg("checkout session settled")
	}
}

// offerLatest replaces any unread snapshot in ch with snap.
func offerLatest(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// post hands ev to the owner. It reports false once the session is gone.
func (s *Session) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) fetchLines(ids []int64) {
	g, ctx := errgroup.WithContext(s.ctx)
	g.SetLimit(s.cfg.LookupConcurrency)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			line, err := s.carts.Lookup(ctx, id)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				s.post(lineFailed{failure: model.LookupFailure{CartItemID: id, Reason: err.Error()}})
				return nil
			}
			s.post(lineResolved{line: line})
			return nil
		})
	}

	_ = g.Wait()
}

func (s *Session) fetchCatalog() {
	defs, err := s.catalog.ListCoupons(s.ctx)
	if s.ctx.Err() != nil {
		return
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", model.ErrCatalogUnavailable, err)
	}
	s.post(catalogFetched{defs: defs, err: err})
}
