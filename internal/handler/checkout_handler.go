package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"kart-checkout/internal/model"
	"kart-checkout/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutHandler handles checkout-related HTTP requests.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Create handles POST /api/checkouts requests.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	if req.CartItemIDs == nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "cartItemIds is required", h.logger)
		return
	}

	resp, err := h.service.Start(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Location", "/api/checkouts/"+resp.ID.String())
	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /api/checkouts/{id} requests. With ?wait=true the
// response is held until every cart line and the catalogue have arrived.
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "wait must be a boolean", h.logger)
			return
		}
		wait = parsed
	}

	resp, err := h.service.Get(r.Context(), id, wait)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// SelectCoupon handles POST /api/checkouts/{id}/coupon requests.
func (h *CheckoutHandler) SelectCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var body struct {
		CouponID *int64 `json:"couponId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if body.CouponID == nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "couponId is required", h.logger)
		return
	}

	resp, err := h.service.SelectCoupon(r.Context(), id, &model.SelectCouponRequest{CouponID: *body.CouponID})
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Events handles GET /api/checkouts/{id}/events requests as a
// server-sent event stream of checkout states.
func (h *CheckoutHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	updates, err := h.service.Watch(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for resp := range updates {
		data, err := json.Marshal(resp)
		if err != nil {
			h.logger.Error().Err(err).Str("session_id", id.String()).Msg("failed to encode checkout event")
			return
		}
		if _, err := fmt.Fprintf(w, "event: checkout\nid: %d\ndata: %s\n\n", resp.Version, data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// Close handles DELETE /api/checkouts/{id} requests.
func (h *CheckoutHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.service.Close(r.Context(), id); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "checkout ID is required", h.logger)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid checkout ID format", h.logger)
		return uuid.Nil, false
	}

	return id, true
}
