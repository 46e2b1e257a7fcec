package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"kart-checkout/internal/checkout"
	"kart-checkout/internal/clock"
	"kart-checkout/internal/coupon"
	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCartLookup is a mock implementation of checkout.CartLookup.
type MockCartLookup struct {
	mock.Mock
}

func (m *MockCartLookup) Lookup(ctx context.Context, cartItemID int64) (model.CartLine, error) {
	args := m.Called(ctx, cartItemID)
	return args.Get(0).(model.CartLine), args.Error(1)
}

// MockCatalog is a mock implementation of coupon.Catalog.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListCoupons(ctx context.Context) ([]model.CouponDefinition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CouponDefinition), args.Error(1)
}

type sessionCounter struct {
	opened, closed, selected atomic.Int32
}

func (o *sessionCounter) SessionOpened()                  { o.opened.Add(1) }
func (o *sessionCounter) SessionClosed()                  { o.closed.Add(1) }
func (o *sessionCounter) LineResolved()                   {}
func (o *sessionCounter) LineFailed()                     {}
func (o *sessionCounter) CatalogLoaded(int)               {}
func (o *sessionCounter) CatalogFailed()                  {}
func (o *sessionCounter) AvailabilityFailed()             {}
func (o *sessionCounter) CouponSelected(model.CouponKind) { o.selected.Add(1) }
func (o *sessionCounter) SelectionCleared()               {}

var (
	keyboard = model.CartLine{CartItemID: 11, ProductID: "P001", ProductName: "Keyboard", UnitPrice: 10000, Quantity: 1}
	mouse    = model.CartLine{CartItemID: 12, ProductID: "P002", ProductName: "Mouse", UnitPrice: 5000, Quantity: 2}
)

func newTestService(t *testing.T, ttl time.Duration, defs []model.CouponDefinition, catalogErr error) (CheckoutService, *MockCartLookup, *sessionCounter) {
	t.Helper()

	carts := new(MockCartLookup)
	carts.On("Lookup", mock.Anything, keyboard.CartItemID).Return(keyboard, nil)
	carts.On("Lookup", mock.Anything, mouse.CartItemID).Return(mouse, nil)
	carts.On("Lookup", mock.Anything, int64(99)).Return(model.CartLine{}, model.ErrCartItemNotFound)

	catalog := new(MockCatalog)
	catalog.On("ListCoupons", mock.Anything).Return(defs, catalogErr)

	clk := clock.NewMockClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	observer := &sessionCounter{}

	svc := NewCheckoutService(
		carts,
		catalog,
		coupon.NewRuleSet(3000, clk),
		Options{Session: checkout.DefaultConfig(), SessionTTL: ttl},
		observer,
		zerolog.Nop(),
	)
	t.Cleanup(svc.Shutdown)

	return svc, carts, observer
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCheckoutService_Start(t *testing.T) {
	t.Run("Empty request", func(t *testing.T) {
		svc, _, observer := newTestService(t, time.Minute, nil, nil)

		resp, err := svc.Start(context.Background(), &model.CheckoutRequest{})

		assert.ErrorIs(t, err, model.ErrEmptyOrder)
		assert.Nil(t, resp)
		assert.Equal(t, int32(0), observer.opened.Load())
	})

	t.Run("Opens session and settles", func(t *testing.T) {
		defs := []model.CouponDefinition{
			model.NewFixedAmountCoupon(1, "SAVE1000", 15000, 1000),
			model.NewFreeShippingCoupon(2, "FREESHIP", 50000),
		}
		svc, _, observer := newTestService(t, time.Minute, defs, nil)

		started, err := svc.Start(context.Background(), &model.CheckoutRequest{CartItemIDs: []int64{11, 12}})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, started.ID)
		assert.Equal(t, int32(1), observer.opened.Load())

		resp, err := svc.Get(waitCtx(t), started.ID, true)
		require.NoError(t, err)

		assert.Equal(t, 0, resp.Pending)
		assert.Len(t, resp.Lines, 2)
		assert.Empty(t, resp.Failures)
		assert.Equal(t, model.Totals{OrderAmount: 20000, DeliveryFee: 3000, Discount: 0, PayableTotal: 23000}, resp.Totals)
		require.Len(t, resp.AvailableCoupons, 1)
		assert.Equal(t, model.CouponView{ID: 1, Code: "SAVE1000", Kind: "FIXED_AMOUNT", Discount: 1000}, resp.AvailableCoupons[0])
		assert.Nil(t, resp.SelectedCoupon)
	})

	t.Run("Failed line is reported", func(t *testing.T) {
		svc, _, _ := newTestService(t, time.Minute, nil, nil)

		started, err := svc.Start(context.Background(), &model.CheckoutRequest{CartItemIDs: []int64{11, 99}})
		require.NoError(t, err)

		resp, err := svc.Get(waitCtx(t), started.ID, true)
		require.NoError(t, err)

		require.Len(t, resp.Failures, 1)
		assert.Equal(t, int64(99), resp.Failures[0].CartItemID)
		assert.Equal(t, int64(10000), resp.Totals.OrderAmount)
		assert.Equal(t, int64(13000), resp.Totals.PayableTotal)
	})

	t.Run("Catalogue failure is surfaced", func(t *testing.T) {
		svc, _, _ := newTestService(t, time.Minute, nil, errors.New("connection refused"))

		started, err := svc.Start(context.Background(), &model.CheckoutRequest{CartItemIDs: []int64{11}})
		require.NoError(t, err)

		resp, err := svc.Get(waitCtx(t), started.ID, true)
		require.NoError(t, err)

		assert.Contains(t, resp.CatalogError, "connection refused")
		assert.Empty(t, resp.AvailableCoupons)
		assert.Equal(t, int64(13000), resp.Totals.PayableTotal)
	})
}

func TestCheckoutService_Get(t *testing.T) {
	t.Run("Unknown session", func(t *testing.T) {
		svc, _, _ := newTestService(t, time.Minute, nil, nil)

		resp, err := svc.Get(context.Background(), uuid.New(), false)

		assert.ErrorIs(t, err, model.ErrSessionNotFound)
		assert.Nil(t, resp)
	})

	t.Run("Wait gives up with ctx and returns partial state", func(t *testing.T) {
		carts := new(MockCartLookup)
		release := make(chan time.Time)
		carts.On("Lookup", mock.Anything, int64(1)).
			WaitUntil(release).
			Return(model.CartLine{CartItemID: 1, ProductID: "P001", UnitPrice: 100, Quantity: 1}, nil)
		catalog := new(MockCatalog)
		catalog.On("ListCoupons", mock.Anything).Return([]model.CouponDefinition{}, nil)

		svc := NewCheckoutService(carts, catalog, coupon.NewRuleSet(3000, clock.NewRealClock(nil)),
			Options{Session: checkout.DefaultConfig()}, nil, zerolog.Nop())
		t.Cleanup(func() {
			close(release)
			svc.Shutdown()
		})

		started, err := svc.Start(context.Background(), &model.CheckoutRequest{CartItemIDs: []int64{1}})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		resp, err := svc.Get(ctx, started.ID, true)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Pending)
		assert.Equal(t, int64(3000), resp.Totals.PayableTotal)
	})
}

func TestCheckoutService_SelectCoupon(t *testing.T) {
	defs := []model.CouponDefinition{
		model.NewFixedAmountCoupon(1, "SAVE1000", 15000, 1000),
		model.NewBuyOneGetOneCoupon(2, "MOUSE11", "P002", 2),
		model.NewFreeShippingCoupon(3, "FREESHIP", 50000),
	}

	tests := []struct {
		name         string
		couponID     int64
		expectedErr  error
		wantDiscount int64
	}{
		{name: "Fixed amount", couponID: 1, wantDiscount: 1000},
		{name: "Buy one get one", couponID: 2, wantDiscount: 5000},
		{name: "Not applicable", couponID: 3, expectedErr: model.ErrCouponNotApplicable},
		{name: "Not in catalogue", couponID: 42, expectedErr: model.ErrCouponNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, observer := newTestService(t, time.Minute, defs, nil)

			started, err := svc.Start(context.Background(), &model.CheckoutRequest{CartItemIDs: []int64{11, 12}})
			require.NoError(t, err)
			_, err = svc.Get(waitCtx(t), started.ID, true)
			require.NoError(t, err)

			resp, err := svc.SelectCoupon(context.Background(), started.ID, &model.SelectCouponRequest{CouponID: tt.couponID})

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, resp)

				current, err := svc.Get(context.Background(), started.ID, false)
				require.NoError(t, err)
				assert.Nil(t, current.SelectedCoupon)
				assert.Equal(t, int32(0), observer.selected.Load())
				return
			}

			require.NoError(t, err)
			require.NotNil(t, resp.SelectedCoupon)
			assert.Equal(t, tt.couponID, resp.SelectedCoupon.ID)
			assert.Equal(t, tt.wantDiscount, resp.Totals.Discount)
			assert.Equal(t, 20000+3000-tt.wantDiscount, resp.Totals.PayableTotal)
			assert.Equal(t, int32(1), observer.selected.Load())
		})
	}

	t.Run("Unknown session", func(t *testing.T) {
		svc, _, _ := newTestService(t, time.Minute, defs, nil)

		_, err := svc.SelectCoupon(context.Background(), uuid.New(), &model.SelectCouponRequest{CouponID: 1})

		assert.ErrorIs(t, err, model.ErrSessionNotFound)
	})
}

func TestCheckoutService_Close(t *testing.T) {
	svc, _, observer := newTestService(t, time.Minute, nil, nil)

	started, err := svc.Start(context.Background(), &model.CheckoutRequest{CartItemIDs: []int64{11}})
	require.NoError(t, err)

	require.NoError(t, svc.Close(context.Background(), started.ID))
	assert.Equal(t, int32(1), observer.closed.Load())

	_, err = svc.Get(context.Background(), started.ID, false)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	err = svc.Close(context.Background(), started.ID)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	assert.Equal(t, int32(1), observer.closed.Load())
}

func TestCheckoutService_SessionExpires(t *testing.T) {
	svc, _, observer := newTestService(t, 30*time.Millisecond, nil, nil)

	started, err := svc.Start(context.Background(), &model.CheckoutRequest{CartItemIDs: []int64{11}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := svc.Get(context.Background(), started.ID, false)
		return errors.Is(err, model.ErrSessionNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), observer.closed.Load())
}

func TestCheckoutService_Shutdown(t *testing.T) {
	svc, _, observer := newTestService(t, time.Minute, nil, nil)

	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := svc.Start(context.Background(), &model.CheckoutRequest{CartItemIDs: []int64{11}})
		require.NoError(t, err)
		ids = append(ids, resp.ID)
	}

	svc.Shutdown()

	assert.Equal(t, int32(3), observer.closed.Load())
	for _, id := range ids {
		_, err := svc.Get(context.Background(), id, false)
		assert.ErrorIs(t, err, model.ErrSessionNotFound)
	}
}

func TestCheckoutService_StartAfterShutdown(t *testing.T) {
	svc, _, observer := newTestService(t, time.Minute, nil, nil)

	svc.Shutdown()

	resp, err := svc.Start(context.Background(), &model.CheckoutRequest{CartItemIDs: []int64{11}})

	assert.ErrorIs(t, err, model.ErrSessionClosed)
	assert.Nil(t, resp)
	assert.Equal(t, int32(0), observer.opened.Load())
}

func TestCheckoutService_Watch(t *testing.T) {
	t.Run("Streams until settled and closes with the session", func(t *testing.T) {
		svc, _, _ := newTestService(t, time.Minute, nil, nil)

		started, err := svc.Start(context.Background(), &model.CheckoutRequest{CartItemIDs: []int64{11, 12}})
		require.NoError(t, err)

		updates, err := svc.Watch(waitCtx(t), started.ID)
		require.NoError(t, err)

		var last *model.CheckoutResponse
		closed := false
		for resp := range updates {
			last = resp
			if resp.Pending == 0 && !closed {
				require.NoError(t, svc.Close(context.Background(), started.ID))
				closed = true
			}
		}

		require.NotNil(t, last)
		assert.Equal(t, 0, last.Pending)
		assert.Equal(t, int64(23000), last.Totals.PayableTotal)
	})

	t.Run("Unknown session", func(t *testing.T) {
		svc, _, _ := newTestService(t, time.Minute, nil, nil)

		_, err := svc.Watch(context.Background(), uuid.New())

		assert.ErrorIs(t, err, model.ErrSessionNotFound)
	})
}
