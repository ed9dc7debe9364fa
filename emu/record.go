// Package emu implements a path-addressable record container and the
// schema-directed expansion and accessor engine for exchanging hierarchical
// records with an Axiell EMu collection-management system. Records are
// authored in a terse, partially-flattened shorthand and expanded into the
// fully nested, schema-validated form the external system requires.
package emu

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/emudata/emurec/schema"
)

// Record is an ordered mapping from field keys to values. A value is a
// scalar (string or number), a []any sequence, or a nested *Record. Records
// carry the module tag of the schema namespace they belong to and a log of
// the top-level keys mutated since construction.
//
// Records are not safe for concurrent mutation; callers needing parallelism
// should process whole, independent records per goroutine.
type Record struct {
	module   string
	catalog  schema.Catalog
	keys     []string
	values   map[string]any
	modified []string
}

// New returns an empty record bound to a module and catalog. Both may be
// zero values; a record without a catalog skips schema validation.
func New(module string, cat schema.Catalog) *Record {
	return &Record{
		module:  module,
		catalog: cat,
		values:  make(map[string]any),
	}
}

// FromMap builds a record from a plain nested map. Nested maps become
// records carrying the same catalog.
func FromMap(module string, cat schema.Catalog, m map[string]any) *Record {
	r := New(module, cat)
	for _, key := range sortedKeys(m) {
		r.set(key, r.adopt(m[key]))
	}
	return r
}

// Module returns the schema namespace the record belongs to.
func (r *Record) Module() string { return r.module }

// SetModule retags the record with a module name.
func (r *Record) SetModule(module string) { r.module = module }

// Catalog returns the schema catalog the record is bound to.
func (r *Record) Catalog() schema.Catalog { return r.catalog }

// Keys returns the record's keys in insertion order.
func (r *Record) Keys() []string { return slices.Clone(r.keys) }

// Len returns the number of top-level keys.
func (r *Record) Len() int { return len(r.keys) }

// Get returns the value stored under a top-level key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether the key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Modified returns the top-level keys changed since construction, oldest
// first, each key at most once.
func (r *Record) Modified() []string { return slices.Clone(r.modified) }

// set stores a value without touching the modified log.
func (r *Record) set(key string, val any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = val
}

// delete removes a top-level key.
func (r *Record) delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	if i := slices.Index(r.keys, key); i >= 0 {
		r.keys = slices.Delete(r.keys, i, i+1)
	}
}

func (r *Record) logModified(key string) {
	if !slices.Contains(r.modified, key) {
		r.modified = append(r.modified, key)
	}
}

// child returns an empty record sharing this record's catalog. The module
// tag is not inherited; reference children are tagged with their target
// module during expansion, and again when read through the accessor.
func (r *Record) child() *Record {
	return New("", r.catalog)
}

// tagged returns a read view of the record under a module tag. The view
// shares keys and values with the receiver, so expansion can classify a
// reference's fields against the referenced module without mutating the
// caller's tree.
func (r *Record) tagged(module string) *Record {
	if module == "" || r.module == module {
		return r
	}
	return &Record{module: module, catalog: r.catalog, keys: r.keys, values: r.values}
}

// adopt converts plain maps and slices into container values owned by this
// record's tree.
func (r *Record) adopt(val any) any {
	switch v := val.(type) {
	case map[string]any:
		rec := r.child()
		for _, key := range sortedKeys(v) {
			rec.set(key, r.adopt(v[key]))
		}
		return rec
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.adopt(item)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	case *Record:
		return v
	default:
		return v
	}
}

// Copy returns a deep copy of the record. The modified-keys log is not
// carried over.
func (r *Record) Copy() *Record {
	out := New(r.module, r.catalog)
	for _, key := range r.keys {
		out.set(key, copyValue(r.values[key]))
	}
	return out
}

func copyValue(val any) any {
	switch v := val.(type) {
	case *Record:
		return v.Copy()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// Map returns a plain nested projection of the record: records become
// map[string]any, sequences become []any.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.keys))
	for _, key := range r.keys {
		out[key] = plainValue(r.values[key])
	}
	return out
}

func plainValue(val any) any {
	switch v := val.(type) {
	case *Record:
		return v.Map()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

// Wrap nests the record under its module name, the form the wire writer
// expects.
func (r *Record) Wrap() *Record {
	out := New(r.module, r.catalog)
	out.set(r.module, r)
	return out
}

// Unwrap removes the outermost level of the record, simplifying the paths
// needed to pull data. The record must hold exactly one key pointing at a
// nested record.
func (r *Record) Unwrap() (*Record, error) {
	if len(r.keys) != 1 {
		return nil, fmt.Errorf("%w: cannot unwrap record with %d keys", ErrPathNotFound, len(r.keys))
	}
	inner, ok := r.values[r.keys[0]].(*Record)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not hold a record", ErrPathNotFound, r.keys[0])
	}
	if inner.module == "" {
		inner.module = r.keys[0]
	}
	return inner, nil
}

// HasPrimaryKey reports whether the record carries a populated external
// identifier, which makes writes against it updates rather than inserts.
func (r *Record) HasPrimaryKey() bool {
	v, ok := r.values[schema.PrimaryKey]
	return ok && truthy(v)
}

// truthy reports the emptiness convention used throughout the engine:
// blank strings and empty containers are false, numbers are always true.
func truthy(val any) bool {
	switch v := val.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case []any:
		return len(v) > 0
	case *Record:
		return v.Len() > 0
	default:
		return true
	}
}

// anyTruthy reports whether the value or any direct member of it is
// populated. Unlike truthy it looks one level into sequences and records so
// a list of blank cells reads as empty.
func anyTruthy(val any) bool {
	switch v := val.(type) {
	case []any:
		for _, item := range v {
			if truthy(item) {
				return true
			}
		}
		return false
	case *Record:
		for _, key := range v.keys {
			if truthy(v.values[key]) {
				return true
			}
		}
		return false
	default:
		return truthy(val)
	}
}

// Populated reports whether a value or any direct member of it holds
// content under the engine's emptiness convention.
func Populated(val any) bool {
	return anyTruthy(val)
}

func isScalar(val any) bool {
	switch val.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

func scalarString(val any) string {
	if val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", val)
}

// deepEqual compares two values structurally, projecting records to plain
// maps so identity of nested containers does not matter.
func deepEqual(a, b any) bool {
	return reflect.DeepEqual(plainValue(a), plainValue(b))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
