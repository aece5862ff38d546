// Package apperr defines the failure taxonomy shared by the mutation engine
// and the transport layer. Every error crossing a package boundary is one of
// these kinds so handlers can map it to a status without string matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind   Kind
	Msg    string
	Fields map[string]string // field-level detail, validation only
	Err    error             // underlying store error, surfaced verbatim
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Invalid reports a single bad field.
func Invalid(field, reason string) *Error {
	return &Error{Kind: KindValidation, Msg: "invalid " + field, Fields: map[string]string{field: reason}}
}

func InvalidFields(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Msg: "invalid input", Fields: fields}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Msg: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Msg: entity + " not found"}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Store wraps a relational or asset store failure. The wrapped message is
// reported to the caller as-is to aid operator debugging.
func Store(op string, err error) *Error {
	return &Error{Kind: KindStore, Msg: op, Err: err}
}

// KindOf returns the taxonomy kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
