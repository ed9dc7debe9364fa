package emu

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/emudata/emurec/schema"
)

// Expand converts a shorthand record into the fully expanded, nested form
// the external system requires, then validates every populated path against
// the record's catalog. It never mutates the receiver: a new record is
// built and returned, so a failed expansion leaves the caller's record
// untouched. Expanding an already-expanded record is a no-op.
//
// Directive handling follows the update convention of the external system:
// a record without a primary key has its row directives stripped (an insert
// always ships whole tables), while a record with one keeps the suffixed
// keys for the writer to translate into row semantics. A suffixed key whose
// value is empty is always dropped, because an empty directive tag would
// otherwise wipe the target table on import.
func (r *Record) Expand() (*Record, error) {
	out, err := r.expand(r.HasPrimaryKey())
	if err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Record) expand(isUpdate bool) (*Record, error) {
	type entry struct {
		key string
		val any
	}

	// Directive normalization, original key order preserved. When a
	// stripped directive and the plain key collide, populated content wins.
	entries := make([]entry, 0, len(r.keys))
	index := make(map[string]int, len(r.keys))
	for _, key := range r.keys {
		clean, directive := schema.SplitDirective(key)
		val := r.values[key]
		switch {
		case directive == schema.DirectiveNone:
			if i, ok := index[key]; ok {
				if truthy(val) {
					entries[i].val = val
				}
				continue
			}
			index[key] = len(entries)
			entries = append(entries, entry{key, val})
		case !truthy(val):
			// Empty append must not erase existing external data.
		case !isUpdate:
			if i, ok := index[clean]; ok {
				if !truthy(entries[i].val) {
					entries[i].val = val
				}
				continue
			}
			index[clean] = len(entries)
			entries = append(entries, entry{clean, val})
		default:
			index[key] = len(entries)
			entries = append(entries, entry{key, val})
		}
	}

	out := New(r.module, r.catalog)
	for _, e := range entries {
		clean, _ := schema.SplitDirective(e.key)
		kind := schema.Classify(r.catalog, r.module, clean)
		expanded, err := r.expandValue(kind, clean, e.val)
		if err != nil {
			return nil, err
		}
		out.set(e.key, expanded)
	}
	return out, nil
}

func (r *Record) expandValue(kind schema.Kind, key string, val any) (any, error) {
	switch kind {
	case schema.KindReference:
		return r.expandReference(key, val)
	case schema.KindReferenceTable:
		return r.expandReferenceTable(key, val)
	case schema.KindNestedTable:
		return r.expandNestedTable(key, val)
	case schema.KindTable:
		return r.expandTable(key, val)
	default:
		if val == nil || isScalar(val) {
			return val, nil
		}
		if anyTruthy(val) {
			return nil, &ExpansionError{Path: key, Reason: "atomic field must hold a scalar"}
		}
		return "", nil
	}
}

func (r *Record) expandReference(key string, val any) (any, error) {
	target := r.referencedModule(key)
	switch v := val.(type) {
	case nil:
		return New(target, r.catalog), nil
	case *Record:
		// A reference's own identity may already be known, so nested
		// records expand in update mode. The child is expanded under the
		// referenced module so its own reference tables classify against
		// the right schema namespace.
		expanded, err := v.tagged(target).expand(true)
		if err != nil {
			return nil, prefixExpansionError(err, key)
		}
		return expanded, nil
	case map[string]any:
		return r.expandReference(key, r.adopt(v))
	default:
		if !isScalar(v) {
			return nil, &ExpansionError{Path: key, Reason: "reference must hold a record or an identifier"}
		}
		stub := New(target, r.catalog)
		if truthy(v) {
			stub.set(schema.PrimaryKey, v)
		}
		return stub, nil
	}
}

// referencedModule resolves the module a reference key points to. The key
// may carry a trailing row index from reference-table expansion; the
// catalog skips numeric segments.
func (r *Record) referencedModule(key string) string {
	if r.catalog == nil || r.module == "" {
		return ""
	}
	path := append([]string{r.module}, strings.Split(key, ".")...)
	target, ok := r.catalog.ReferencedModule(path...)
	if !ok {
		return ""
	}
	return target
}

func (r *Record) expandReferenceTable(key string, val any) (any, error) {
	seq, err := r.tableSequence(key, val)
	if err != nil {
		return nil, err
	}
	rows := make([]any, 0, len(seq))
	for i, item := range seq {
		row, err := r.expandReference(fmt.Sprintf("%s.%d", key, i), item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *Record) expandTable(key string, val any) (any, error) {
	seq, err := r.tableSequence(key, val)
	if err != nil {
		return nil, err
	}
	if !anyTruthy(seq) {
		return []any{}, nil
	}
	base := schema.BaseName(key)
	rows := make([]any, 0, len(seq))
	for i, item := range seq {
		switch v := item.(type) {
		case *Record:
			rows = append(rows, v.Copy())
		case map[string]any:
			rows = append(rows, r.adopt(v))
		default:
			if !isScalar(v) && v != nil {
				return nil, &ExpansionError{
					Path:   fmt.Sprintf("%s.%d", key, i),
					Reason: "table row must hold a scalar or a record",
				}
			}
			row := r.child()
			row.set(base, v)
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (r *Record) expandNestedTable(key string, val any) (any, error) {
	seq, err := r.tableSequence(key, val)
	if err != nil {
		return nil, err
	}
	if !anyTruthy(seq) {
		return []any{}, nil
	}
	inner := key + "_inner"
	base := schema.BaseName(key)
	if strings.Contains(key, "Ref_") {
		base = schema.PrimaryKey
	}
	// A flat list of scalars is one outer row whose cells are the scalars.
	if flatScalars(seq) {
		cells := make([]any, 0, len(seq))
		for _, cell := range seq {
			cellRec := r.child()
			cellRec.set(base, cell)
			cells = append(cells, cellRec)
		}
		row := r.child()
		row.set(inner, cells)
		return []any{row}, nil
	}
	rows := make([]any, 0, len(seq))
	for i, item := range seq {
		switch v := item.(type) {
		case *Record:
			// An already-tagged inner-table record is left alone.
			if !v.Has(inner) {
				return nil, &ExpansionError{
					Path:   fmt.Sprintf("%s.%d", key, i),
					Reason: "nested table row record lacks the inner table key " + inner,
				}
			}
			rows = append(rows, v.Copy())
		case []any:
			cells := make([]any, 0, len(v))
			for j, cell := range v {
				switch c := cell.(type) {
				case *Record:
					cells = append(cells, c.Copy())
				case map[string]any:
					cells = append(cells, r.adopt(c))
				default:
					if !isScalar(c) && c != nil {
						return nil, &ExpansionError{
							Path:   fmt.Sprintf("%s.%d.%d", key, i, j),
							Reason: "nested table cell must hold a scalar or a record",
						}
					}
					cellRec := r.child()
					cellRec.set(base, c)
					cells = append(cells, cellRec)
				}
			}
			row := r.child()
			row.set(inner, cells)
			rows = append(rows, row)
		default:
			return nil, &ExpansionError{
				Path:   fmt.Sprintf("%s.%d", key, i),
				Reason: "nested table row must hold a sequence or a row record",
			}
		}
	}
	return rows, nil
}

// flatScalars reports whether every element of a sequence is a bare scalar
// or nil.
func flatScalars(seq []any) bool {
	for _, item := range seq {
		if item != nil && !isScalar(item) {
			return false
		}
	}
	return true
}

func (r *Record) tableSequence(key string, val any) ([]any, error) {
	switch v := val.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	default:
		return nil, &ExpansionError{Path: key, Reason: "table field must hold a sequence"}
	}
}

// validate confirms every populated path resolves in the catalog. A path
// the catalog does not know but that carries no value is tolerated; a
// populated unknown path is a hard failure, never a silent drop.
func (r *Record) validate() error {
	if r.catalog == nil {
		return nil
	}
	return r.validateNode(r, []string{r.module})
}

func (r *Record) validateNode(val any, path []string) error {
	switch v := val.(type) {
	case *Record:
		for _, key := range v.keys {
			clean, _ := schema.SplitDirective(key)
			childPath := append(slices.Clone(path), clean)
			if err := r.validateNode(v.values[key], childPath); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, item := range v {
			if err := r.validateNode(item, path); err != nil {
				return err
			}
		}
		return nil
	default:
		if !truthy(v) {
			return nil
		}
		if _, err := r.catalog.Lookup(path...); err != nil {
			return &ExpansionError{
				Path:   strings.Join(path, "."),
				Reason: "populated path does not resolve in the schema",
				Err:    schema.ErrUnknownPath,
			}
		}
		return nil
	}
}

// prefixExpansionError rewrites a nested expansion failure so the reported
// path is rooted at the caller's key.
func prefixExpansionError(err error, key string) error {
	var expErr *ExpansionError
	if errors.As(err, &expErr) {
		prefixed := *expErr
		if prefixed.Path == "" {
			prefixed.Path = key
		} else {
			prefixed.Path = key + "." + prefixed.Path
		}
		return &prefixed
	}
	return err
}
