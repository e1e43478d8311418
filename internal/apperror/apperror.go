// Package apperror defines the error taxonomy shared by services and handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"storefront-service/internal/model"
)

// Kind classifies an error for the API.
type Kind string

const (
	Unauthorized  Kind = "unauthorized"
	Forbidden     Kind = "forbidden"
	Validation    Kind = "validation_error"
	NotFound      Kind = "not_found"
	Conflict      Kind = "conflict"
	RateLimited   Kind = "rate_limited"
	OutOfStock    Kind = "out_of_stock"
	PaymentFailed Kind = "payment_failed"
	InvalidState  Kind = "invalid_state"
	Expired       Kind = "expired"
	UsageExceeded Kind = "usage_exceeded"
	InvalidStatus Kind = "invalid_status"
	Internal      Kind = "internal_error"
)

// Error carries a Kind, a user-facing message and an optional cause.
type Error struct {
	Kind        Kind
	Message     string
	StockErrors []model.StockError
	// Status overrides the default HTTP status of Kind when non-zero.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and message to a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// StockUnavailable reports every cart line that cannot be fulfilled.
func StockUnavailable(items []model.StockError) *Error {
	return &Error{
		Kind:        OutOfStock,
		Message:     "some items are not available in the requested quantity",
		StockErrors: items,
	}
}

// KindOf returns the Kind of err, or Internal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	case Internal:
		return http.StatusInternalServerError
	default:
		// validation, conflicts, stock, discount and payment rejections are all client errors
		return http.StatusBadRequest
	}
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Status != 0 {
			return appErr.Status
		}
		return HTTPStatus(appErr.Kind)
	}
	return http.StatusInternalServerError
}
