// Package groups builds import records for the egroups module, which the
// external system uses to hold static lists of record keys.
package groups

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/emudata/emurec/emu"
	"github.com/emudata/emurec/schema"
)

// ErrEmptyGroup indicates a group was requested with no member keys.
var ErrEmptyGroup = errors.New("groups: no keys given")

// Options names an existing group to update or a new group to create.
// Exactly one of IRN and Name should be set: IRN targets an existing group,
// Name creates a new one.
type Options struct {
	// IRN is the key of an existing group to overwrite.
	IRN string
	// Name titles a new group.
	Name string
	// Dynamic marks the group as query-backed rather than a fixed key list.
	Dynamic bool
}

// Build assembles an egroups record holding the given keys from target
// module records. The record comes back expanded and ready for an import
// writer. New groups are stamped with a client-generated GroupGUID so
// repeated imports of the same batch can be recognized.
func Build(cat schema.Catalog, targetModule string, irns []string, opts Options) (*emu.Record, error) {
	if len(irns) == 0 {
		return nil, ErrEmptyGroup
	}
	if opts.IRN == "" && opts.Name == "" {
		return nil, fmt.Errorf("groups: group needs an irn or a name")
	}
	if opts.IRN != "" && opts.Name != "" {
		return nil, fmt.Errorf("groups: group takes an irn or a name, not both")
	}
	if cat != nil {
		if _, err := cat.Lookup(targetModule); err != nil {
			return nil, fmt.Errorf("groups: unknown target module %q: %w", targetModule, err)
		}
	}

	groupType := "Static"
	if opts.Dynamic {
		groupType = "Dynamic"
	}

	rec := emu.New("egroups", cat)
	if opts.IRN != "" {
		if err := rec.Push(opts.IRN, schema.PrimaryKey); err != nil {
			return nil, err
		}
	} else {
		if err := rec.Push(opts.Name, "GroupName"); err != nil {
			return nil, err
		}
		if err := rec.Push(uuid.NewString(), "GroupGUID"); err != nil {
			return nil, err
		}
	}
	if err := rec.Push(groupType, "GroupType"); err != nil {
		return nil, err
	}
	if err := rec.Push(targetModule, "Module"); err != nil {
		return nil, err
	}
	keys := make([]any, 0, len(irns))
	for _, irn := range irns {
		if irn == "" {
			return nil, fmt.Errorf("groups: blank key in group")
		}
		keys = append(keys, irn)
	}
	if err := rec.Push(keys, "Keys_tab"); err != nil {
		return nil, err
	}
	return rec.Expand()
}
