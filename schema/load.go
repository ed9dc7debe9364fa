package schema

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// Load decodes a YAML catalog definition. The document maps module names to
// module specs:
//
//	ecatalogue:
//	  fields:
//	    irn: {}
//	    CatOtherNumbersType_tab: {table: OtherNumbers}
//	    LocPermanentLocationRef: {ref: elocations}
//	  tables:
//	    OtherNumbers: [CatOtherNumbersType_tab, CatOtherNumbersValue_tab]
func Load(r io.Reader) (*StaticCatalog, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var modules map[string]ModuleSpec
	if err := yaml.Unmarshal(payload, &modules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("%w: no modules defined", ErrInvalidCatalog)
	}

	return NewStatic(modules)
}

// LoadFile reads a YAML catalog definition from disk.
func LoadFile(path string) (*StaticCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Load(f)
}
