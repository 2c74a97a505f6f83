package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an ID does not name a stored record.
var ErrNotFound = errors.New("not found")

// ErrReferenced is returned when deleting a record that other records still point to.
var ErrReferenced = errors.New("still referenced")

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one input.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// add records a problem on field.
func (e *ValidationErrors) add(field, format string, args ...any) {
	*e = append(*e, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// err returns nil when nothing was recorded.
func (e ValidationErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ReferenceError reports why a delete was refused.
type ReferenceError struct {
	Kind  string // what was being deleted
	ID    string
	By    string // the referencing collection
	Count int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("cannot delete %s %s: used by %d %s", e.Kind, e.ID, e.Count, e.By)
}

func (e *ReferenceError) Unwrap() error { return ErrReferenced }

type refCount struct {
	by string
	n  int
}

// refuse returns a ReferenceError for the first collection still pointing at id.
func refuse(kind, id string, counts ...refCount) error {
	for _, c := range counts {
		if c.n > 0 {
			return &ReferenceError{Kind: kind, ID: id, By: c.by, Count: c.n}
		}
	}
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
