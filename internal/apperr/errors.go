// Package apperr carries the stable error classification used across the
// service. Every error surfaced to a caller has a Code that the presentation
// layer can branch on and a human-readable message.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

const (
	EInternal               = "internal"
	EInvalid                = "invalid"
	EConflict               = "conflict"
	ENotFound               = "not found"
	EForbidden              = "forbidden"
	EUnauthorized           = "unauthorized"
	EInvalidStateTransition = "invalid state transition"
	ENoPriceAvailable       = "no price available"
)

// ErrNoPriceAvailable signals that neither a private nor a default price
// applies. It is a valid resolver outcome, not a failure.
var ErrNoPriceAvailable = &Error{Code: ENoPriceAvailable, Msg: "price on request"}

// Error is the error type returned by services.
//
// Code targets automated handlers, Msg is shown to the user, Op names the
// operation that failed and Err holds the wrapped cause.
type Error struct {
	Code string
	Msg  string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" && e.Err != nil {
		var b strings.Builder
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
		return b.String()
	} else if e.Msg != "" {
		return e.Msg
	} else if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("<%s>", e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports code equality so errors.Is(err, ErrNoPriceAvailable) matches any
// error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// ErrorCode returns the code of the outermost coded error in the chain,
// EInternal for uncoded errors and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) || e == nil {
		return EInternal
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return ErrorCode(e.Err)
	}
	return EInternal
}

// ErrorMessage returns the human-readable message of the error. Uncoded
// errors are never echoed back to callers.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) || e == nil {
		return "An internal error has occurred."
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return ErrorMessage(e.Err)
	}
	return "An internal error has occurred."
}

// Invalid returns a validation error.
func Invalid(format string, args ...interface{}) *Error {
	return &Error{Code: EInvalid, Msg: fmt.Sprintf(format, args...)}
}

// Conflict returns a uniqueness or in-use error.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Code: EConflict, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns an error for an absent resource.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: ENotFound, Msg: fmt.Sprintf(format, args...)}
}

// Forbidden returns an error for an actor lacking role or tenant scope.
func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Code: EForbidden, Msg: fmt.Sprintf(format, args...)}
}

// Unauthorized returns an authentication error.
func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Code: EUnauthorized, Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransition returns an error for an action not allowed from the
// current status.
func InvalidTransition(action, from string) *Error {
	return &Error{
		Code: EInvalidStateTransition,
		Msg:  fmt.Sprintf("cannot %s from status %q", action, from),
	}
}

// Internal wraps an unexpected failure, tagging it with the operation.
func Internal(op string, err error) *Error {
	return &Error{Code: EInternal, Op: op, Err: err}
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return ErrorCode(err) == code
}
