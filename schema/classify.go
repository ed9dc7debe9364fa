package schema

import (
	"strings"
)

// Field-name suffixes used by the external system to mark structural kind.
const (
	MarkerTable       = "_tab"
	MarkerNestedTable = "_nesttab"
	MarkerInnerTable  = "_nesttab_inner"
	MarkerReference   = "Ref"
	MarkerRefTable    = "Ref_tab"
)

// PrimaryKey is the field that carries a record's external identifier.
const PrimaryKey = "irn"

// Directive is the row-update behavior encoded as a parenthesized key suffix.
type Directive int

const (
	DirectiveNone      Directive = iota
	DirectiveAppend              // (+)
	DirectiveOverwrite           // (=)
	DirectivePrepend             // (-)
)

func (d Directive) String() string {
	switch d {
	case DirectiveAppend:
		return "+"
	case DirectiveOverwrite:
		return "="
	case DirectivePrepend:
		return "-"
	default:
		return ""
	}
}

// Suffix renders the directive as it appears on a shorthand key.
func (d Directive) Suffix() string {
	if d == DirectiveNone {
		return ""
	}
	return "(" + d.String() + ")"
}

// SplitDirective separates a shorthand key from its row directive, if any.
// Unrecognized parenthesized suffixes are left on the key untouched.
func SplitDirective(key string) (string, Directive) {
	if !strings.HasSuffix(key, ")") {
		return key, DirectiveNone
	}
	i := strings.LastIndex(key, "(")
	if i < 0 {
		return key, DirectiveNone
	}
	switch key[i:] {
	case "(+)":
		return key[:i], DirectiveAppend
	case "(=)":
		return key[:i], DirectiveOverwrite
	case "(-)":
		return key[:i], DirectivePrepend
	default:
		return key, DirectiveNone
	}
}

// BaseName returns the bare column name for a decorated field key, e.g.
// "CatOtherNumbersType_tab" -> "CatOtherNumbersType" and
// "NotNmnhText0" -> "NotNmnhText".
func BaseName(key string) string {
	key, _ = SplitDirective(key)
	if i := strings.Index(key, "_"); i >= 0 {
		key = key[:i]
	}
	return strings.TrimRight(key, "0")
}

// IsTableKey reports whether the key carries any of the table naming markers.
func IsTableKey(key string) bool {
	key, _ = SplitDirective(key)
	return strings.HasSuffix(key, MarkerTable) ||
		strings.HasSuffix(key, MarkerNestedTable) ||
		strings.HasSuffix(key, MarkerInnerTable) ||
		strings.HasSuffix(key, "0")
}

// Classify reports the structural kind of a path. The first segment of the
// path is the module name. Decision order, first match wins:
//
//  1. reference-table marker resolving to a foreign module
//  2. nested-table marker
//  3. plain table marker
//  4. reference marker
//  5. atomic
//
// With a nil catalog the reference-table marker alone decides, which keeps
// classification usable on records that have not been bound to a schema.
// The expander and the accessor both classify through this function so the
// two can never disagree on shape.
func Classify(cat Catalog, path ...string) Kind {
	if len(path) == 0 {
		return KindAtomic
	}
	last, _ := SplitDirective(path[len(path)-1])
	switch {
	case strings.HasSuffix(last, MarkerRefTable) && refTableResolves(cat, path):
		return KindReferenceTable
	case strings.HasSuffix(last, MarkerNestedTable):
		return KindNestedTable
	case strings.HasSuffix(last, MarkerTable),
		strings.HasSuffix(last, MarkerInnerTable),
		strings.HasSuffix(last, "0"):
		return KindTable
	case strings.HasSuffix(last, MarkerReference):
		return KindReference
	default:
		return KindAtomic
	}
}

func refTableResolves(cat Catalog, path []string) bool {
	if cat == nil {
		return true
	}
	_, ok := cat.ReferencedModule(path...)
	return ok
}
