package sexp

import "fmt"

// DuplicateReferenceError is returned when a reference designator is already
// present in a document.
type DuplicateReferenceError struct {
	Reference string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("duplicate reference designator %q", e.Reference)
}

// NotFoundError is returned when an entity lookup fails.
type NotFoundError struct {
	Kind      string // footprint, symbol, pad, pin
	Reference string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Reference)
}

// InvalidGeometryError is returned for non-positive sizes, open outlines and
// similar malformed geometry.
type InvalidGeometryError struct {
	Field  string
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid geometry for %s: %s", e.Field, e.Reason)
}
