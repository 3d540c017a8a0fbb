// Package fault classifies failures so callers can render a precise
// response without inspecting error strings.
package fault

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
)

// Error carries the failure kind plus the offending field, if any.
type Error struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Invalid(field string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Err: err}
}

func Conflict(field string, err error) *Error {
	return &Error{Kind: KindConflict, Field: field, Err: err}
}

func Forbidden(err error) *Error {
	return &Error{Kind: KindForbidden, Err: err}
}

func NotFound(field string, err error) *Error {
	return &Error{Kind: KindNotFound, Field: field, Err: err}
}

// KindOf extracts the classification from an error chain; unknown
// failures report an empty kind.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// FieldOf reports the offending field recorded on the error chain.
func FieldOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
