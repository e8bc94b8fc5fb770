package services

import (
	"errors"
	"fmt"
)

// ErrTokenRevoked is the cause of the error returned for a logged out token.
var ErrTokenRevoked = errors.New("token revoked")

// Kind classifies failures so transports can map them without string matching.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindUnauthenticated
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindValidation:
		return "validation_failed"
	}
	return "unexpected"
}

// Error is the business error returned by every service operation.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) *Error  { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error  { return &Error{Kind: KindConflict, Message: msg} }
func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Validation reports rejected input. fields may be nil.
func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// Unexpected hides err behind a generic message; the cause stays reachable through Unwrap.
func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnexpected
}
