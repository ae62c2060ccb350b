package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable tag of a ClassifiedError. Callers choose
// the UI treatment from the kind alone.
type ErrorKind string

const (
	ErrorKindNotFound          ErrorKind = "not_found"
	ErrorKindOwnerNotActivated ErrorKind = "owner_not_activated"
	ErrorKindParseFailure      ErrorKind = "parse_failure"
)

// Status analogs attached to each ErrorKind.
const (
	StatusParseFailure      = 400
	StatusOwnerNotActivated = 403
	StatusNotFound          = 404
)

// ClassifiedError is a rejected query result that the UI can address by kind.
// Detail is markdown; ActionURL is set when the user can resolve the error
// themselves (for example by activating their seat).
type ClassifiedError struct {
	Kind      ErrorKind
	Status    int
	Detail    string
	ActionURL string
	Cause     error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Kind, e.Status, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Detail)
}

// Unwrap returns the underlying cause, typically a schema parse error.
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// AsClassified extracts a ClassifiedError from an error chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsKind reports whether err carries a ClassifiedError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ce, ok := AsClassified(err)
	return ok && ce.Kind == kind
}
