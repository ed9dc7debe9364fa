// Package query runs JSONPath expressions against records, for callers that
// need ad hoc selection beyond the shaped accessors.
package query

import (
	"errors"
	"fmt"

	"github.com/theory/jsonpath"

	"github.com/emudata/emurec/emu"
)

var (
	// ErrInvalidQuery indicates a JSONPath expression that does not compile.
	ErrInvalidQuery = errors.New("query: invalid expression")

	// ErrNoMatch indicates the expression selected nothing.
	ErrNoMatch = errors.New("query: no match")
)

// Select returns every value the expression matches in the record.
// Expressions use standard JSONPath syntax rooted at the record, e.g.
// "$.CatOtherNumbersValue_tab[*].CatOtherNumbersValue".
func Select(rec *emu.Record, expr string) ([]any, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: expression is empty", ErrInvalidQuery)
	}

	path, err := jsonpath.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidQuery, expr, err)
	}

	results := path.Select(rec.Map())

	out := make([]any, 0, len(results))
	for _, result := range results {
		out = append(out, result)
	}
	return out, nil
}

// First returns the first value the expression matches.
func First(rec *emu.Record, expr string) (any, error) {
	results, err := Select(rec, expr)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, expr)
	}
	return results[0], nil
}

// FirstString converts the first match using fmt.Sprintf when it is not
// already a string.
func FirstString(rec *emu.Record, expr string) (string, error) {
	result, err := First(rec, expr)
	if err != nil {
		return "", err
	}
	if s, ok := result.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", result), nil
}
