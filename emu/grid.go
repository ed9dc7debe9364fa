package emu

import (
	"fmt"
	"slices"

	"github.com/emudata/emurec/schema"
)

// Grid is a mutable row-oriented projection over a fixed set of sibling
// table columns within one record. Constructing a grid materializes the
// columns: each is padded with the default value until every row index is
// addressable across all columns, and a missing column is created rather
// than left absent. All mutations operate on every column simultaneously so
// the per-column sequences stay equal length, and write through to the
// owning record.
type Grid struct {
	rec   *Record
	cols  []string
	pad   string
	label string
}

// Grid builds a grid over the given columns. Every column must carry a
// table marker.
func (r *Record) Grid(cols ...string) (*Grid, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: grid needs at least one column", ErrPathNotFound)
	}
	for _, col := range cols {
		if !schema.IsTableKey(col) {
			return nil, fmt.Errorf("%w: %s is not a table column", ErrPathNotFound, col)
		}
	}
	return &Grid{rec: r, cols: slices.Clone(cols)}, nil
}

// GridForTable resolves the columns of a named table group through the
// record's catalog and builds a grid over them.
func (r *Record) GridForTable(name string) (*Grid, error) {
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: record has no catalog", schema.ErrUnknownPath)
	}
	cols, err := r.catalog.TableColumns(r.module, name)
	if err != nil {
		return nil, err
	}
	return r.Grid(cols...)
}

// SetPad changes the default used to fill absent cells. It applies to rows
// materialized after the call.
func (g *Grid) SetPad(pad string) { g.pad = pad }

// SetLabel marks one column as the row label used by RowWithLabel.
func (g *Grid) SetLabel(col string) error {
	if !slices.Contains(g.cols, col) {
		return fmt.Errorf("%w: %s is not a grid column", ErrPathNotFound, col)
	}
	g.label = col
	return nil
}

// Columns returns the grid's columns in order.
func (g *Grid) Columns() []string { return slices.Clone(g.cols) }

// Len returns the number of rows, the length of the longest column.
func (g *Grid) Len() int {
	maxLen := 0
	for _, col := range g.cols {
		if seq, ok := g.column(col); ok && len(seq) > maxLen {
			maxLen = len(seq)
		}
	}
	return maxLen
}

func (g *Grid) column(col string) ([]any, bool) {
	val, ok := g.rec.Get(col)
	if !ok {
		return nil, false
	}
	seq, ok := val.([]any)
	return seq, ok
}

// materialize pads every column of the owning record to equal length.
func (g *Grid) materialize() error {
	length := g.Len()
	for _, col := range g.cols {
		seq, _ := g.column(col)
		if val, ok := g.rec.Get(col); ok {
			if _, isSeq := val.([]any); !isSeq && truthy(val) {
				return &ExpansionError{Path: col, Reason: "table field must hold a sequence"}
			}
		}
		if len(seq) == length && seq != nil {
			continue
		}
		padded := slices.Clone(seq)
		for len(padded) < length {
			cell, err := g.makeCell(col, g.pad)
			if err != nil {
				return err
			}
			padded = append(padded, cell)
		}
		if err := g.rec.Push(padded, col); err != nil {
			return err
		}
	}
	return nil
}

// makeCell wraps a raw value into the expanded row form for the column,
// using the same classification the expander applies.
func (g *Grid) makeCell(col string, val any) (any, error) {
	kind := schema.Classify(g.rec.catalog, g.rec.module, col)
	if !truthy(val) {
		switch kind {
		case schema.KindReferenceTable:
			return g.rec.child(), nil
		case schema.KindNestedTable:
			row := g.rec.child()
			row.set(col+"_inner", []any{})
			return row, nil
		default:
			row := g.rec.child()
			row.set(schema.BaseName(col), scalarString(val))
			return row, nil
		}
	}
	expanded, err := g.rec.expandValue(kind, col, []any{val})
	if err != nil {
		return nil, err
	}
	seq, ok := expanded.([]any)
	if !ok || len(seq) == 0 {
		return nil, &ExpansionError{Path: col, Reason: "cell did not expand to a row"}
	}
	return seq[0], nil
}

// cellValue unwraps the stored row form back into the value the column
// presents: the base-field value for a plain table, the row record for a
// reference table, the inner rows for a nested table.
func (g *Grid) cellValue(col string, elem any) any {
	switch v := elem.(type) {
	case nil:
		return g.pad
	case *Record:
		switch schema.Classify(g.rec.catalog, g.rec.module, col) {
		case schema.KindReferenceTable:
			return v
		case schema.KindNestedTable:
			if inner, ok := v.Get(col + "_inner"); ok {
				return inner
			}
			return []any{}
		}
		if val, ok := v.Get(schema.BaseName(col)); ok {
			return val
		}
		if v.Len() == 1 {
			only, _ := v.Get(v.keys[0])
			return only
		}
		return g.pad
	default:
		return v
	}
}

// Rows returns one snapshot per row index, keyed by column, with absent
// cells filled from the pad default.
func (g *Grid) Rows() ([]map[string]any, error) {
	if err := g.materialize(); err != nil {
		return nil, err
	}
	rows := make([]map[string]any, g.Len())
	for i := range rows {
		row := make(map[string]any, len(g.cols))
		for _, col := range g.cols {
			seq, _ := g.column(col)
			row[col] = g.cellValue(col, seq[i])
		}
		rows[i] = row
	}
	return rows, nil
}

// Row returns a live view of one row. Writes through the view back-propagate
// to the owning record.
func (g *Grid) Row(i int) (*Row, error) {
	if err := g.materialize(); err != nil {
		return nil, err
	}
	if i < 0 || i >= g.Len() {
		return nil, fmt.Errorf("%w: row %d of %d", ErrRowNotFound, i, g.Len())
	}
	return &Row{grid: g, index: i}, nil
}

// RowMatching returns the unique row whose columns equal the criteria.
func (g *Grid) RowMatching(criteria map[string]any) (*Row, error) {
	rows, err := g.Rows()
	if err != nil {
		return nil, err
	}
	found := -1
	for i, row := range rows {
		if !rowMatches(row, criteria) {
			continue
		}
		if found >= 0 {
			return nil, fmt.Errorf("%w: rows %d and %d", ErrAmbiguousRow, found, i)
		}
		found = i
	}
	if found < 0 {
		return nil, fmt.Errorf("%w: %v", ErrRowNotFound, criteria)
	}
	return &Row{grid: g, index: found}, nil
}

// RowWithLabel returns the unique row whose label column holds the label.
func (g *Grid) RowWithLabel(label string) (*Row, error) {
	if g.label == "" {
		return nil, fmt.Errorf("%w: grid has no label column", ErrRowNotFound)
	}
	return g.RowMatching(map[string]any{g.label: label})
}

func rowMatches(row map[string]any, criteria map[string]any) bool {
	for col, want := range criteria {
		got, ok := row[col]
		if !ok {
			return false
		}
		if isScalar(want) || want == nil {
			if scalarString(got) != scalarString(want) {
				return false
			}
		} else if !deepEqual(got, want) {
			return false
		}
	}
	return true
}

// Append adds one row at the end of every column. Columns missing from
// cells receive the pad default.
func (g *Grid) Append(cells map[string]any) error {
	return g.InsertAt(g.Len(), cells)
}

// InsertAt adds one row before index i in every column.
func (g *Grid) InsertAt(i int, cells map[string]any) error {
	if err := g.materialize(); err != nil {
		return err
	}
	if i < 0 || i > g.Len() {
		return fmt.Errorf("%w: row %d of %d", ErrRowNotFound, i, g.Len())
	}
	for _, col := range g.cols {
		cell, err := g.cellFor(col, cells)
		if err != nil {
			return err
		}
		seq, _ := g.column(col)
		updated := slices.Insert(slices.Clone(seq), i, cell)
		if err := g.rec.Push(updated, col); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceAt overwrites the row at index i in every column.
func (g *Grid) ReplaceAt(i int, cells map[string]any) error {
	if err := g.checkIndex(i); err != nil {
		return err
	}
	for _, col := range g.cols {
		cell, err := g.cellFor(col, cells)
		if err != nil {
			return err
		}
		seq, _ := g.column(col)
		updated := slices.Clone(seq)
		updated[i] = cell
		if err := g.rec.Push(updated, col); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAt deletes the row at index i from every column.
func (g *Grid) RemoveAt(i int) error {
	if err := g.checkIndex(i); err != nil {
		return err
	}
	for _, col := range g.cols {
		seq, _ := g.column(col)
		updated := slices.Delete(slices.Clone(seq), i, i+1)
		if err := g.rec.Push(updated, col); err != nil {
			return err
		}
	}
	return nil
}

func (g *Grid) checkIndex(i int) error {
	if err := g.materialize(); err != nil {
		return err
	}
	if i < 0 || i >= g.Len() {
		return fmt.Errorf("%w: row %d of %d", ErrRowNotFound, i, g.Len())
	}
	return nil
}

func (g *Grid) cellFor(col string, cells map[string]any) (any, error) {
	val, ok := cells[col]
	if !ok {
		val = g.pad
	}
	return g.makeCell(col, val)
}

// Row is a live view of one grid row.
type Row struct {
	grid  *Grid
	index int
}

// Index returns the row's position in the grid.
func (row *Row) Index() int { return row.index }

// Value returns the cell under the given column.
func (row *Row) Value(col string) any {
	seq, ok := row.grid.column(col)
	if !ok || row.index >= len(seq) {
		return row.grid.pad
	}
	return row.grid.cellValue(col, seq[row.index])
}

// Map returns a snapshot of the row keyed by column.
func (row *Row) Map() map[string]any {
	out := make(map[string]any, len(row.grid.cols))
	for _, col := range row.grid.cols {
		out[col] = row.Value(col)
	}
	return out
}

// Set writes a cell back to the owning record's column sequence.
func (row *Row) Set(col string, val any) error {
	if !slices.Contains(row.grid.cols, col) {
		return fmt.Errorf("%w: %s is not a grid column", ErrPathNotFound, col)
	}
	cell, err := row.grid.makeCell(col, val)
	if err != nil {
		return err
	}
	seq, _ := row.grid.column(col)
	if row.index >= len(seq) {
		return fmt.Errorf("%w: row %d of %d", ErrRowNotFound, row.index, len(seq))
	}
	updated := slices.Clone(seq)
	updated[row.index] = cell
	return row.grid.rec.Push(updated, col)
}
