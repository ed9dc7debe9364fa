package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownPath indicates the catalog has no knowledge of a path.
	ErrUnknownPath = errors.New("schema: unknown path")

	// ErrInvalidCatalog indicates a catalog definition that cannot be used.
	ErrInvalidCatalog = errors.New("schema: invalid catalog")
)

// Field is the catalog's answer for a resolvable path.
type Field struct {
	// Module is the module the field belongs to after reference jumps.
	Module string
	// Name is the decorated field name of the final resolved segment.
	Name string
	// RefModule is the referenced module for reference fields.
	RefModule string
	// Table is the name of the table group the field belongs to, if any.
	Table string
}

// Catalog answers structural questions about field paths. The first path
// segment is always a module name. Implementations must be queryable for
// any path string, including paths not present in a given record instance.
type Catalog interface {
	// Lookup resolves a path against the schema, jumping into the
	// referenced module whenever it meets a reference segment. Row
	// directives and numeric row indexes are ignored. A path of a single
	// segment resolves iff the module exists.
	Lookup(path ...string) (Field, error)

	// TableColumns returns the sibling columns of the table the final
	// segment belongs to, in schema order. The final segment may name
	// either a member column or the table group itself.
	TableColumns(path ...string) ([]string, error)

	// ReferencedModule returns the module a reference path points to.
	ReferencedModule(path ...string) (string, bool)
}

// FieldSpec describes one field in a catalog definition.
type FieldSpec struct {
	// Ref names the module a reference field points to.
	Ref string `yaml:"ref,omitempty"`
	// Table names the table group the field belongs to.
	Table string `yaml:"table,omitempty"`
}

// ModuleSpec describes one module in a catalog definition.
type ModuleSpec struct {
	Fields map[string]FieldSpec `yaml:"fields"`
	// Tables maps table group names to their member columns in row order.
	Tables map[string][]string `yaml:"tables,omitempty"`
}

// StaticCatalog is an in-memory Catalog built from module specs.
type StaticCatalog struct {
	modules map[string]ModuleSpec
}

// NewStatic validates the definition and builds a catalog from it.
func NewStatic(modules map[string]ModuleSpec) (*StaticCatalog, error) {
	for name, mod := range modules {
		for field, spec := range mod.Fields {
			if spec.Ref != "" {
				if _, ok := modules[spec.Ref]; !ok {
					return nil, fmt.Errorf("%w: %s.%s references undefined module %s",
						ErrInvalidCatalog, name, field, spec.Ref)
				}
			}
			if spec.Ref != "" && !strings.Contains(field, MarkerReference) {
				return nil, fmt.Errorf("%w: %s.%s has a ref target but no reference marker",
					ErrInvalidCatalog, name, field)
			}
		}
		for table, cols := range mod.Tables {
			if len(cols) == 0 {
				return nil, fmt.Errorf("%w: %s table %s has no columns",
					ErrInvalidCatalog, name, table)
			}
			for _, col := range cols {
				if _, ok := mod.Fields[col]; !ok {
					return nil, fmt.Errorf("%w: %s table %s lists undefined column %s",
						ErrInvalidCatalog, name, table, col)
				}
			}
		}
	}
	return &StaticCatalog{modules: modules}, nil
}

// Modules returns the module names known to the catalog.
func (c *StaticCatalog) Modules() []string {
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	return names
}

// Lookup implements Catalog.
func (c *StaticCatalog) Lookup(path ...string) (Field, error) {
	field, _, err := c.resolve(path)
	return field, err
}

// ReferencedModule implements Catalog.
func (c *StaticCatalog) ReferencedModule(path ...string) (string, bool) {
	field, _, err := c.resolve(path)
	if err != nil || field.RefModule == "" {
		return "", false
	}
	return field.RefModule, true
}

// TableColumns implements Catalog.
func (c *StaticCatalog) TableColumns(path ...string) ([]string, error) {
	if len(path) >= 2 {
		// The final segment may name a table group directly.
		if owner, _, err := c.resolve(path[:len(path)-1]); err == nil {
			module := owner.Module
			if owner.RefModule != "" {
				module = owner.RefModule
			}
			if cols, ok := c.modules[module].Tables[path[len(path)-1]]; ok {
				return cols, nil
			}
		}
	}
	field, mod, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	if field.Table == "" {
		if field.Name == "" {
			return nil, fmt.Errorf("%w: %s names no table", ErrUnknownPath, dotted(path))
		}
		// An ungrouped table column is its own single-column grid.
		return []string{field.Name}, nil
	}
	cols, ok := c.modules[mod].Tables[field.Table]
	if !ok {
		return nil, fmt.Errorf("%w: %s table %s is not defined", ErrUnknownPath, mod, field.Table)
	}
	return cols, nil
}

// resolve walks the path, jumping modules at references. It returns the
// resolved field and the module the field lives in.
func (c *StaticCatalog) resolve(path []string) (Field, string, error) {
	if len(path) == 0 {
		return Field{}, "", fmt.Errorf("%w: empty path", ErrUnknownPath)
	}
	module := path[0]
	mod, ok := c.modules[module]
	if !ok {
		return Field{}, "", fmt.Errorf("%w: %s", ErrUnknownPath, dotted(path))
	}
	field := Field{Module: module}
	prev := ""
	for _, raw := range path[1:] {
		seg, _ := SplitDirective(raw)
		if seg == "" || isIndex(seg) {
			continue
		}
		// The inner container of a nested table is implicit in the schema.
		if strings.HasSuffix(seg, MarkerInnerTable) {
			if strings.TrimSuffix(seg, "_inner") != prev {
				return Field{}, "", fmt.Errorf("%w: %s", ErrUnknownPath, dotted(path))
			}
			continue
		}
		spec, ok := mod.Fields[seg]
		if !ok {
			// Inside a table row, values are keyed by the column's base name.
			if prev != "" && IsTableKey(prev) && BaseName(prev) == seg {
				field = Field{Module: module, Name: seg}
				prev = seg
				continue
			}
			return Field{}, "", fmt.Errorf("%w: %s", ErrUnknownPath, dotted(path))
		}
		field = Field{Module: module, Name: seg, RefModule: spec.Ref, Table: spec.Table}
		if spec.Ref != "" {
			module = spec.Ref
			mod, ok = c.modules[module]
			if !ok {
				return Field{}, "", fmt.Errorf("%w: %s", ErrUnknownPath, dotted(path))
			}
		}
		prev = seg
	}
	return field, field.Module, nil
}

func isIndex(seg string) bool {
	_, err := strconv.Atoi(seg)
	return err == nil
}

func dotted(path []string) string {
	return strings.Join(path, ".")
}
