package router

import (
	"net/http"

	"kart-checkout/internal/handler"
	"kart-checkout/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
// metricsHandler is mounted at /metrics when non-nil; recorder may be nil.
func New(
	checkoutHandler *handler.CheckoutHandler,
	metricsHandler http.Handler,
	recorder middleware.RequestRecorder,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	mux.HandleFunc("POST /api/checkouts", checkoutHandler.Create)
	mux.HandleFunc("GET /api/checkouts/{id}", checkoutHandler.Get)
	mux.HandleFunc("DELETE /api/checkouts/{id}", checkoutHandler.Close)
	mux.HandleFunc("POST /api/checkouts/{id}/coupon", checkoutHandler.SelectCoupon)
	mux.HandleFunc("GET /api/checkouts/{id}/events", checkoutHandler.Events)

	// Apply middleware in order: CorrelationID -> Recovery -> Logging -> CORS -> APIKeyAuth
	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(apiKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger, recorder)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}
