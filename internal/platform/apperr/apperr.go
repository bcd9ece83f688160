// Package apperr defines the error taxonomy shared by the domain services and
// its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure independently of the transport.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidState
	KindPersistence
	KindUpstreamUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindPersistence:
		return "persistence"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusConflict
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Reason is the only text shown to clients;
// Err keeps the underlying cause for logs and errors.Is. Committed marks a
// failure reported after the write it belongs to went through, so retrying
// the request would repeat that write.
type Error struct {
	Kind      Kind
	Reason    string
	Details   map[string]any
	Err       error
	Committed bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches a client-safe field to the response body.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// MarkCommitted flags the error as reported after a durable write.
func (e *Error) MarkCommitted() *Error {
	e.Committed = true
	return e
}

func newErr(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: cause}
}

func InvalidInput(reason string) *Error { return newErr(KindInvalidInput, reason, nil) }

func Unauthorized(reason string) *Error { return newErr(KindUnauthorized, reason, nil) }

func Forbidden(reason string) *Error { return newErr(KindForbidden, reason, nil) }

func NotFound(reason string) *Error { return newErr(KindNotFound, reason, nil) }

func InvalidState(reason string) *Error { return newErr(KindInvalidState, reason, nil) }

// Internal is an unclassified server failure.
func Internal(reason string, cause error) *Error {
	return newErr(KindUnknown, reason, cause)
}

func Persistence(reason string, cause error) *Error {
	return newErr(KindPersistence, reason, cause)
}

func UpstreamUnavailable(reason string, cause error) *Error {
	return newErr(KindUpstreamUnavailable, reason, cause)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsCommitted reports whether err carries an *Error marked committed.
func IsCommitted(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Committed
}
