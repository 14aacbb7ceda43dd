// Package apperr defines the error kinds surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Every *Error unwraps to exactly one of these.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
)

// Error is a classified error with optional field-scoped messages.
type Error struct {
	Kind   error
	Detail string
	Fields map[string][]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		if e.Detail != "" {
			return e.Detail
		}
		return e.Kind.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	head := e.Detail
	if head == "" {
		head = e.Kind.Error()
	}
	return head + ": " + strings.Join(parts, ", ")
}

func (e *Error) Unwrap() error { return e.Kind }

// Add appends a message for field and returns e for chaining.
func (e *Error) Add(field, msg string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
	return e
}

// Validation returns a validation error for a single field.
func Validation(field, msg string) *Error {
	return (&Error{Kind: ErrValidation}).Add(field, msg)
}

// Invalid returns an empty validation error that callers fill with Add.
func Invalid() *Error {
	return &Error{Kind: ErrValidation}
}

// Conflict returns a uniqueness conflict on field.
func Conflict(field, msg string) *Error {
	return (&Error{Kind: ErrConflict}).Add(field, msg)
}

// NotFound reports a missing record of the named resource.
func NotFound(resource string, id any) *Error {
	return &Error{Kind: ErrNotFound, Detail: fmt.Sprintf("%s %v not found", resource, id)}
}

// Unauthenticated reports missing or invalid credentials.
func Unauthenticated(detail string) *Error {
	return &Error{Kind: ErrUnauthenticated, Detail: detail}
}

// Forbidden reports an authenticated caller without the required privilege.
func Forbidden(detail string) *Error {
	return &Error{Kind: ErrForbidden, Detail: detail}
}

// OrNil returns e when it carries field messages, nil otherwise.
// It lets validators accumulate problems and return once.
func (e *Error) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
