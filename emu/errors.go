package emu

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound indicates container traversal hit a missing or
	// incompatible segment. Callers may treat it as absence.
	ErrPathNotFound = errors.New("emu: path not found")

	// ErrAmbiguousRow indicates more than one grid row matched the criteria.
	ErrAmbiguousRow = errors.New("emu: multiple rows match")

	// ErrRowNotFound indicates no grid row matched the criteria.
	ErrRowNotFound = errors.New("emu: no row matches")
)

// ExpansionError reports a failure while expanding or validating a record.
// It carries the full dotted path so the offending shorthand key can be
// located in the source input. Unwrap exposes schema.ErrUnknownPath when the
// failure came from schema validation.
type ExpansionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ExpansionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("emu: expand %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("emu: expand %s: %s", e.Path, e.Reason)
}

func (e *ExpansionError) Unwrap() error {
	return e.Err
}
