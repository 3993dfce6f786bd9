// internal/liberr/liberr.go

// Package liberr defines the error kinds the lending engine surfaces to
// callers. Every business-rule failure carries a Kind that maps onto an
// HTTP status; internal failures are wrapped as KindInternal.
package liberr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a caller-visible failure category.
type Kind string

const (
	KindOutOfStock             Kind = "OUT_OF_STOCK"
	KindBorrowLimitExceeded    Kind = "BORROW_LIMIT_EXCEEDED"
	KindRenewalLimitExceeded   Kind = "RENEWAL_LIMIT_EXCEEDED"
	KindAlreadyOverdue         Kind = "ALREADY_OVERDUE"
	KindInvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	KindInvalidPolicy          Kind = "INVALID_POLICY"
	KindNotFound               Kind = "NOT_FOUND"
	KindUnauthorized           Kind = "UNAUTHORIZED"
	KindInvalidInput           Kind = "INVALID_INPUT"
	KindRateLimited            Kind = "RATE_LIMITED"
	KindInternal               Kind = "INTERNAL_INCONSISTENCY"
)

// Error pairs a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports kind equality so errors.Is(err, &Error{Kind: k}) works across
// wrapped chains.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf extracts the Kind from an error chain, defaulting to KindInternal
// for errors the engine did not classify.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps a kind onto the response status the API returns for it.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	case KindOutOfStock, KindBorrowLimitExceeded, KindRenewalLimitExceeded,
		KindAlreadyOverdue, KindInvalidStateTransition:
		return http.StatusConflict
	case KindInvalidPolicy, KindInvalidInput:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
