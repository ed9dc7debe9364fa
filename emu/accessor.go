package emu

import (
	"fmt"
	"slices"
	"strings"

	"github.com/emudata/emurec/schema"
)

// SmartPull reads a field through its structural classification and shapes
// the result accordingly:
//
//   - atomic field: string, empty when absent
//   - table: sequence of values, one per row
//   - reference: the referenced record, tagged with its target module
//   - reference with a trailing field: that field's value directly
//   - reference table: sequence of records, each tagged with the target module
//   - reference table with a trailing field: sequence of that field's value
//     from each row, row alignment preserved
//   - nested table: sequence of sequences, one inner sequence per outer row
//
// Absence never raises: SmartPull returns the structural default for the
// classification. When the result is empty and the path does not resolve in
// the catalog, it fails with schema.ErrUnknownPath so a misspelled field can
// never be mistaken for an empty one. A single argument may be a dotted or
// slash-delimited path.
func (r *Record) SmartPull(path ...string) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrPathNotFound)
	}
	if len(path) == 1 {
		path = splitFieldPath(path[0])
	}

	var result any
	switch {
	case suffixIndex(path, schema.MarkerNestedTable) >= 0:
		result = r.pullNested(path)
	case suffixIndex(path, schema.MarkerRefTable) >= 0:
		result = r.pullReferenceTable(path)
	case anyTableSegment(path):
		result = r.getRows(path...)
	case strings.HasSuffix(path[len(path)-1], schema.MarkerReference):
		result = r.pullReference(path)
	default:
		val, err := r.Pull(fieldPath(path)...)
		if err != nil || val == nil {
			result = ""
		} else {
			result = val
		}
	}

	r.tagReferences(path, result)

	// Verify the path against the schema when nothing came back. A failed
	// lookup on a populated result is impossible here because populated
	// records are validated at expansion.
	if !truthy(result) && r.catalog != nil {
		lookup := append([]string{r.module}, path...)
		if _, err := r.catalog.Lookup(lookup...); err != nil {
			return nil, fmt.Errorf("%w: %s", schema.ErrUnknownPath, strings.Join(path, "."))
		}
	}
	return result, nil
}

// GetRows returns one value per row of a one-dimensional table column. A
// single argument may be a dotted or slash-delimited path. Absent tables
// yield an empty sequence.
func (r *Record) GetRows(path ...string) []any {
	if len(path) == 1 {
		path = splitFieldPath(path[0])
	}
	return r.getRows(path...)
}

// GetReference returns the rows of a reference table, each tagged with the
// module it points to, or the trailing field's value from each row when the
// path continues past the table. A path with no reference-table segment
// yields an empty sequence.
func (r *Record) GetReference(path ...string) any {
	if len(path) == 1 {
		path = splitFieldPath(path[0])
	}
	idx := suffixIndex(path, schema.MarkerRefTable)
	if idx < 0 {
		return []any{}
	}
	result := r.pullReferenceTable(path)
	r.tagReferences(path[:idx+1], result)
	return result
}

// pullNested splits the path at the nested-table marker and expands each
// outer row through its inner table.
func (r *Record) pullNested(path []string) []any {
	nestIdx := suffixIndex(path, schema.MarkerNestedTable)
	inner := path[nestIdx] + "_inner"
	segs := slices.Clone(path)
	if !slices.Contains(segs, inner) {
		segs = slices.Insert(segs, nestIdx+1, inner)
	}
	innerIdx := slices.Index(segs, inner)

	val, err := r.Pull(fieldPath(segs[:innerIdx])...)
	if err != nil {
		return []any{[]any{}}
	}
	seq, ok := val.([]any)
	if !ok {
		return []any{[]any{}}
	}
	rows := make([]any, 0, len(seq))
	for _, row := range seq {
		rec, ok := row.(*Record)
		if !ok {
			rows = append(rows, []any{})
			continue
		}
		rows = append(rows, rec.getRows(segs[innerIdx:]...))
	}
	return rows
}

// pullReferenceTable returns the rows of a reference table, or the value of
// a trailing field from each row. Rows missing the field contribute an
// empty value at their position rather than a removed position.
func (r *Record) pullReferenceTable(path []string) any {
	idx := suffixIndex(path, schema.MarkerRefTable)
	val, err := r.Pull(fieldPath(path[:idx+1])...)
	if err != nil {
		return []any{}
	}
	seq, ok := val.([]any)
	if !ok {
		return []any{}
	}
	trailing := path[idx+1:]
	if len(trailing) == 0 {
		return seq
	}
	rows := make([]any, 0, len(seq))
	for _, row := range seq {
		rec, ok := row.(*Record)
		if !ok {
			rows = append(rows, "")
			continue
		}
		cell, err := rec.SmartPull(trailing...)
		if err != nil {
			cell = ""
		}
		rows = append(rows, cell)
	}
	return rows
}

// pullReference returns the referenced record, or an empty one tagged with
// the target module when the path is absent.
func (r *Record) pullReference(path []string) any {
	val, err := r.Pull(fieldPath(path)...)
	if err == nil {
		if rec, ok := val.(*Record); ok {
			return rec
		}
		if val != nil {
			return val
		}
	}
	return r.child()
}

// getRows returns one value per row of a one-dimensional table. Segments
// after the last table marker are dropped, mirroring how the wire format
// nests a column's values inside per-row records. Rows stored unexpanded
// contribute their raw value instead of failing.
func (r *Record) getRows(path ...string) []any {
	for i := len(path) - 1; i >= 0; i-- {
		if schema.IsTableKey(path[i]) {
			path = path[:i+1]
			break
		}
	}
	val, err := r.Pull(fieldPath(path)...)
	if err != nil {
		return []any{}
	}
	seq, ok := val.([]any)
	if !ok {
		return []any{}
	}
	rows := make([]any, 0, len(seq))
	for _, row := range seq {
		switch rec := row.(type) {
		case *Record:
			for _, key := range rec.keys {
				rows = append(rows, rec.values[key])
			}
		case nil:
			rows = append(rows, "")
		default:
			rows = append(rows, rec)
		}
	}
	return rows
}

// tagReferences stamps reference results with the module they point to.
func (r *Record) tagReferences(path []string, result any) {
	if r.catalog == nil {
		return
	}
	last := path[len(path)-1]
	if !strings.HasSuffix(last, schema.MarkerReference) && !strings.HasSuffix(last, schema.MarkerRefTable) {
		return
	}
	target, ok := r.catalog.ReferencedModule(append([]string{r.module}, path...)...)
	if !ok {
		return
	}
	switch v := result.(type) {
	case *Record:
		v.SetModule(target)
	case []any:
		for _, item := range v {
			if rec, ok := item.(*Record); ok {
				rec.SetModule(target)
			}
		}
	}
}

// suffixIndex returns the index of the first segment carrying the suffix.
func suffixIndex(path []string, suffix string) int {
	for i, seg := range path {
		if strings.HasSuffix(seg, suffix) {
			return i
		}
	}
	return -1
}

func anyTableSegment(path []string) bool {
	for _, seg := range path {
		if schema.IsTableKey(seg) {
			return true
		}
	}
	return false
}

func fieldPath(path []string) []any {
	segs := make([]any, len(path))
	for i, seg := range path {
		segs[i] = seg
	}
	return segs
}

func splitFieldPath(path string) []string {
	if strings.Contains(path, ".") {
		return strings.Split(path, ".")
	}
	if strings.Contains(path, "/") {
		return strings.Split(path, "/")
	}
	return []string{path}
}
