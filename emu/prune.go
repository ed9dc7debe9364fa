package emu

import (
	"slices"
	"strings"
)

// Prune removes falsy leaves from the record: blank strings and empty
// containers are plucked with full ancestor cascade, numbers are always
// kept, zero included. Sequences are scanned last-to-first and the scan
// stops at the first surviving row, because in the external system blanks
// only ever trail populated rows in a column. Rows above a survivor are
// deliberately left untouched.
func (r *Record) Prune() {
	for _, key := range r.Keys() {
		val, ok := r.Get(key)
		if !ok {
			// An earlier cascade plucked this key already.
			continue
		}
		pruneValue(r, val, []any{key})
	}
}

// pruneValue reports whether the value survived.
func pruneValue(root *Record, val any, path []any) bool {
	switch v := val.(type) {
	case nil:
		_ = root.Pluck(path...)
		return false
	case string:
		if strings.TrimSpace(v) == "" {
			_ = root.Pluck(path...)
			return false
		}
		return true
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		// Number-like values are always kept, zero included.
		return true
	case bool:
		if !v {
			_ = root.Pluck(path...)
		}
		return v
	case *Record:
		if v.Len() == 0 {
			_ = root.Pluck(path...)
			return false
		}
		survived := false
		for _, key := range v.Keys() {
			child, ok := v.Get(key)
			if !ok {
				continue
			}
			if pruneValue(root, child, append(slices.Clone(path), key)) {
				survived = true
			}
		}
		if !survived {
			_ = root.Pluck(path...)
		}
		return survived
	case []any:
		if len(v) == 0 {
			_ = root.Pluck(path...)
			return false
		}
		survived := false
		for i := len(v) - 1; i >= 0; i-- {
			childPath := append(slices.Clone(path), i)
			child, err := root.Pull(childPath...)
			if err != nil {
				// A cascade removed this row or an ancestor.
				continue
			}
			if pruneValue(root, child, childPath) {
				survived = true
				break
			}
		}
		return survived
	default:
		return true
	}
}
