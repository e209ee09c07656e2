// Package apperr defines the error kinds the service distinguishes and
// maps them to HTTP statuses and stable machine-readable codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the transport layer.
type Kind int

const (
	Internal Kind = iota
	Validation
	Authentication
	Unauthorized
	Forbidden
	NotFound
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	}
	return "internal"
}

// Error is a classified error.  Code is stable and safe to expose; Message
// is human readable; Err is the optional underlying cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Wrap attaches a cause to a classified error.
func Wrap(kind Kind, code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

func NewValidation(msg string) *Error { return New(Validation, "invalid_request", msg) }

func NewNotFound(msg string) *Error { return New(NotFound, "not_found", msg) }

func NewConflict(msg string) *Error { return New(Conflict, "conflict", msg) }

func NewUnauthorized(msg string) *Error { return New(Unauthorized, "unauthorized", msg) }

func NewForbidden(msg string) *Error { return New(Forbidden, "forbidden", msg) }

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, Internal when err is not classified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// Status maps a kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Authentication, Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
