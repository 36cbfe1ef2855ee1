// Package apperr defines the structured error taxonomy shared by all domain
// services: every error a service returns carries a kind (mapping to an HTTP
// status), a stable machine-readable code, a human message, and an optional
// detail payload such as a list of conflicting slots.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and logging.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindInternal     Kind = "INTERNAL"
)

// Error is a structured application error.
type Error struct {
	Kind    Kind        `json:"kind"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Code, e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithDetail attaches a detail payload and returns the error for chaining.
func (e *Error) WithDetail(detail interface{}) *Error {
	e.Detail = detail
	return e
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds a structured error around an underlying cause. The cause is
// preserved for logging but never serialized to clients.
func Wrap(cause error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

func Validation(code, message string) *Error { return New(KindValidation, code, message) }
func NotFound(code, message string) *Error   { return New(KindNotFound, code, message) }
func Conflict(code, message string) *Error   { return New(KindConflict, code, message) }
func Forbidden(code, message string) *Error  { return New(KindForbidden, code, message) }

// Internal wraps an unexpected failure. Clients see a generic message; the
// cause stays server-side.
func Internal(cause error) *Error {
	return Wrap(cause, KindInternal, "INTERNAL", "internal server error")
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf returns the machine code of err, or "INTERNAL" for unclassified
// errors.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return "INTERNAL"
}

// Status maps an error kind to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error envelope returned to clients. Both tiers of a
// duplicated check (e.g. the overlap pre-check and the in-transaction
// re-check) produce the same shape so clients cannot tell which tier
// rejected them.
func Body(err error) map[string]interface{} {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = Internal(err)
	}
	body := map[string]interface{}{
		"error": map[string]interface{}{
			"kind":    ae.Kind,
			"code":    ae.Code,
			"message": ae.Message,
		},
	}
	if ae.Detail != nil {
		body["error"].(map[string]interface{})["detail"] = ae.Detail
	}
	return body
}
