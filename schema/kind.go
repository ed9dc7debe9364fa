package schema

// Kind is the structural classification of a field path.
type Kind int

const (
	KindAtomic Kind = iota
	KindTable
	KindReference
	KindReferenceTable
	KindNestedTable

	// KindTotal is the number of kinds defined.
	KindTotal = int(iota)
)

func (k Kind) String() string {
	switch k {
	case KindAtomic:
		return "atomic"
	case KindTable:
		return "table"
	case KindReference:
		return "reference"
	case KindReferenceTable:
		return "reference table"
	case KindNestedTable:
		return "nested table"
	default:
		return "unknown"
	}
}

// IsSequence reports whether values of this kind are stored as sequences.
func (k Kind) IsSequence() bool {
	switch k {
	case KindTable, KindReferenceTable, KindNestedTable:
		return true
	default:
		return false
	}
}
