package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/emudata/emurec/emu"
)

func testRecord() *emu.Record {
	return emu.FromMap("ecatalogue", nil, map[string]any{
		"irn":       "1234567",
		"CatNumber": "G3551-00",
		"CatCollectionName_tab": []any{
			map[string]any{"CatCollectionName": "Rocks & Ores"},
			map[string]any{"CatCollectionName": "Minerals"},
		},
		"LocPermanentLocationRef": map[string]any{
			"irn":       "1003604",
			"LocLevel1": "NMNH",
		},
	})
}

func TestSelect(t *testing.T) {
	rec := testRecord()

	tests := []struct {
		name    string
		expr    string
		want    []any
		wantErr error
	}{
		{
			"atomic",
			"$.CatNumber",
			[]any{"G3551-00"},
			nil,
		},
		{
			"wildcard over table rows",
			"$.CatCollectionName_tab[*].CatCollectionName",
			[]any{"Rocks & Ores", "Minerals"},
			nil,
		},
		{
			"nested reference field",
			"$.LocPermanentLocationRef.LocLevel1",
			[]any{"NMNH"},
			nil,
		},
		{
			"no match selects nothing",
			"$.Nope",
			[]any{},
			nil,
		},
		{
			"empty expression",
			"",
			nil,
			ErrInvalidQuery,
		},
		{
			"malformed expression",
			"$[",
			nil,
			ErrInvalidQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(rec, tt.expr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Select(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select(%q) error = %v", tt.expr, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Select(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestFirst(t *testing.T) {
	rec := testRecord()

	got, err := First(rec, "$.CatCollectionName_tab[*].CatCollectionName")
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if got != "Rocks & Ores" {
		t.Errorf("First() = %v, want Rocks & Ores", got)
	}

	if _, err := First(rec, "$.Nope"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("First() error = %v, want ErrNoMatch", err)
	}
}

func TestFirstString(t *testing.T) {
	rec := emu.FromMap("ecatalogue", nil, map[string]any{
		"CatNumber": "G3551-00",
		"count":     3,
	})

	got, err := FirstString(rec, "$.CatNumber")
	if err != nil {
		t.Fatalf("FirstString() error = %v", err)
	}
	if got != "G3551-00" {
		t.Errorf("FirstString() = %q", got)
	}

	got, err = FirstString(rec, "$.count")
	if err != nil {
		t.Fatalf("FirstString() error = %v", err)
	}
	if got != "3" {
		t.Errorf("FirstString() = %q, want 3", got)
	}

	if _, err := FirstString(rec, "$.Nope"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("FirstString() error = %v, want ErrNoMatch", err)
	}
}
