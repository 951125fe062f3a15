// Package apperr centralizes the error taxonomy every gateway handler maps
// to an HTTP status and a {"detail": "..."} body, replacing the teacher's
// per-handler c.JSON(http.StatusX, gin.H{"error": ...}) repetition with one
// typed error and one place that knows the status mapping.
package apperr

import "net/http"

// Kind is one of the taxonomy entries from the error handling design.
type Kind string

const (
	Validation      Kind = "validation"
	BadRequest      Kind = "bad_request"
	Unauthenticated Kind = "unauthenticated"
	NotFound        Kind = "not_found"
	Conflict        Kind = "conflict"
	PayloadTooLarge Kind = "payload_too_large"
	RateLimited     Kind = "rate_limited"
	Internal        Kind = "internal"
	Unavailable     Kind = "unavailable"
)

// Error is the typed error every gateway handler returns instead of
// writing to the response directly. The middleware in internal/middleware
// is what actually converts it to JSON.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for this error's kind.
func (e *Error) Status() int {
	switch e.Kind {
	case Validation:
		return http.StatusUnprocessableEntity
	case BadRequest, Conflict:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case RateLimited:
		return http.StatusTooManyRequests
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func WithFields(kind Kind, message string, fields map[string]string) *Error {
	return &Error{Kind: kind, Message: message, Fields: fields}
}

func NotFoundErr() *Error {
	return New(NotFound, "not found")
}

func InternalErr(cause error) *Error {
	return Wrap(Internal, "an internal error occurred", cause)
}
