package metrics

import (
	"strconv"
	"time"

	"kart-checkout/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. It also satisfies
// checkout.Observer.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec

	SessionsActive     prometheus.Gauge
	SessionsStarted    prometheus.Counter
	CartLookupsTotal   *prometheus.CounterVec
	CatalogLoadsTotal  *prometheus.CounterVec
	CatalogSize        prometheus.Gauge
	AvailabilityErrors prometheus.Counter
	CouponSelections   *prometheus.CounterVec
	SelectionsCleared  prometheus.Counter
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status_code"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "checkout_sessions_active",
				Help: "Number of open checkout sessions",
			},
		),
		SessionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_sessions_started_total",
				Help: "Total number of checkout sessions started",
			},
		),
		CartLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_cart_lookups_total",
				Help: "Total number of cart line lookups by result",
			},
			[]string{"result"},
		),
		CatalogLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_catalog_loads_total",
				Help: "Total number of coupon catalogue loads by result",
			},
			[]string{"result"},
		),
		CatalogSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "checkout_catalog_size",
				Help: "Number of coupons in the most recently loaded catalogue",
			},
		),
		AvailabilityErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_availability_errors_total",
				Help: "Total number of failed coupon availability computations",
			},
		),
		CouponSelections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_coupon_selections_total",
				Help: "Total number of coupon selections by kind",
			},
			[]string{"kind"},
		),
		SelectionsCleared: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_selections_cleared_total",
				Help: "Total number of selections cleared because the coupon stopped applying",
			},
		),
	}
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.HTTPRequestDuration.WithLabelValues(method, code).Observe(duration.Seconds())
	m.HTTPRequestsTotal.WithLabelValues(method, code).Inc()
}

func (m *Metrics) SessionOpened() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	m.SessionsActive.Dec()
}

func (m *Metrics) LineResolved() {
	m.CartLookupsTotal.WithLabelValues("resolved").Inc()
}

func (m *Metrics) LineFailed() {
	m.CartLookupsTotal.WithLabelValues("failed").Inc()
}

func (m *Metrics) CatalogLoaded(count int) {
	m.CatalogLoadsTotal.WithLabelValues("loaded").Inc()
	m.CatalogSize.Set(float64(count))
}

func (m *Metrics) CatalogFailed() {
	m.CatalogLoadsTotal.WithLabelValues("failed").Inc()
}

func (m *Metrics) AvailabilityFailed() {
	m.AvailabilityErrors.Inc()
}

func (m *Metrics) CouponSelected(kind model.CouponKind) {
	m.CouponSelections.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) SelectionCleared() {
	m.SelectionsCleared.Inc()
}
