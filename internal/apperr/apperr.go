// Package apperr defines the error kinds the service distinguishes and how
// they map onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status-code mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindIO
)

// Error carries a kind, a client-facing message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status code. IO and internal
// failures are server errors; everything the client caused is 4xx.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// New creates an Error with a kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// BadRequestf creates a client-error with a formatted message.
func BadRequestf(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a missing-record error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// IO wraps a filesystem error.
func IO(message string, err error) *Error {
	return &Error{Kind: KindIO, Message: message, Err: err}
}

// StatusFor returns the HTTP status for any error. Errors that do not carry
// a kind default to 500.
func StatusFor(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
