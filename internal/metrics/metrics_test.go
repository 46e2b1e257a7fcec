package metrics

import (
	"net/http"
	"testing"
	"time"

	"kart-checkout/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CheckoutObserver(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.LineResolved()
	m.LineResolved()
	m.LineFailed()
	m.CatalogLoaded(4)
	m.CatalogFailed()
	m.AvailabilityFailed()
	m.CouponSelected(model.KindFixedAmount)
	m.SelectionCleared()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CartLookupsTotal.WithLabelValues("resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartLookupsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogLoadsTotal.WithLabelValues("loaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogLoadsTotal.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CatalogSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvailabilityErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CouponSelections.WithLabelValues("FIXED_AMOUNT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SelectionsCleared))
}

func TestMetrics_ObserveHTTPRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTPRequest(http.MethodGet, http.StatusOK, 15*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, http.StatusOK, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}
