package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeInvalidParameter    = "INVALID_PARAMETER"
	ErrCodeEmptyOrder          = "EMPTY_ORDER"
	ErrCodeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrCodeSessionClosed       = "SESSION_CLOSED"
	ErrCodeCouponNotFound      = "COUPON_NOT_FOUND"
	ErrCodeCouponNotApplicable = "COUPON_NOT_APPLICABLE"
	ErrCodeUnknownCouponKind   = "UNKNOWN_COUPON_KIND"
	ErrCodeInvalidCoupon       = "INVALID_COUPON"
	ErrCodeCartItemNotFound    = "CART_ITEM_NOT_FOUND"
	ErrCodeCatalogUnavailable  = "CATALOG_UNAVAILABLE"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrEmptyOrder          = NewDomainError(ErrCodeEmptyOrder, "Checkout must contain at least one cart item")
	ErrSessionNotFound     = NewDomainError(ErrCodeSessionNotFound, "Checkout session not found")
	ErrSessionClosed       = NewDomainError(ErrCodeSessionClosed, "Checkout session has been closed")
	ErrCouponNotFound      = NewDomainError(ErrCodeCouponNotFound, "Coupon is not in the catalogue")
	ErrCouponNotApplicable = NewDomainError(ErrCodeCouponNotApplicable, "Coupon cannot be applied to this order")
	ErrUnknownCouponKind   = NewDomainError(ErrCodeUnknownCouponKind, "Coupon kind is not supported")
	ErrInvalidCoupon       = NewDomainError(ErrCodeInvalidCoupon, "Coupon definition is invalid")
	ErrCartItemNotFound    = NewDomainError(ErrCodeCartItemNotFound, "Cart item not found")
	ErrCatalogUnavailable  = NewDomainError(ErrCodeCatalogUnavailable, "Coupon catalogue is unavailable")
)
