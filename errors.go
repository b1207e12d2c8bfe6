package commitcv

import (
	"fmt"
	"net/http"
)

// ErrorType classifies a pipeline failure for API callers. The type, not the
// underlying provider error, decides the HTTP status and the user-facing
// message.
type ErrorType string

const (
	// ErrTypeRateLimited — admission refused by our own rate limiter.
	ErrTypeRateLimited ErrorType = "rate_limited"
	// ErrTypeUpstreamRateLimited — the completion service returned 429.
	ErrTypeUpstreamRateLimited ErrorType = "upstream_rate_limited"
	// ErrTypeInsufficientCredit — the completion account balance is exhausted.
	ErrTypeInsufficientCredit ErrorType = "insufficient_credit"
	// ErrTypeTimeout — the completion call hit its hard deadline.
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeValidation — model output failed parsing or schema validation.
	// Deliberately not retried: a generative call is not idempotent-safe.
	ErrTypeValidation ErrorType = "analysis_failed"
	// ErrTypeUpstream — any other completion-service failure.
	ErrTypeUpstream ErrorType = "upstream_error"
	// ErrTypeInvalidInput — the caller's request was malformed.
	ErrTypeInvalidInput ErrorType = "invalid_request"
	// ErrTypeInternal — unexpected internal failure.
	ErrTypeInternal ErrorType = "internal_error"
)

// Error is the typed error surfaced at the endpoint boundary.
type Error struct {
	Type    ErrorType
	Message string
	cause   error
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the error type onto a response status.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case ErrTypeRateLimited:
		return http.StatusTooManyRequests
	case ErrTypeUpstreamRateLimited:
		return http.StatusServiceUnavailable
	case ErrTypeInsufficientCredit:
		return http.StatusPaymentRequired
	case ErrTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrTypeValidation, ErrTypeUpstream:
		return http.StatusBadGateway
	case ErrTypeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
