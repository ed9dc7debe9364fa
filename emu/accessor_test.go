package emu

import (
	"errors"
	"reflect"
	"testing"

	"github.com/emudata/emurec/schema"
)

func sampleRecord(t *testing.T) *Record {
	t.Helper()
	return mustExpand(t, map[string]any{
		"irn":                   "1234567",
		"CatNumber":             "G3551-00",
		"CatCollectionName_tab": []any{"Rocks & Ores", "Minerals"},
		"NotNmnhType_tab":       []any{"Comments"},
		"NotNmnhText0":          []any{"handle with care"},
		"LocPermanentLocationRef": map[string]any{
			"irn":       "1003604",
			"LocLevel1": "NMNH",
		},
		"CatCollectorsRef_tab": []any{
			map[string]any{"irn": "1001", "NamLast": "Smith"},
			"1002",
		},
		"CatOtherCountsValue_nesttab": []any{
			[]any{"1", "2"},
			[]any{"3"},
		},
	})
}

func TestSmartPullShapes(t *testing.T) {
	rec := sampleRecord(t)

	tests := []struct {
		name string
		path []string
		want any
	}{
		{"atomic", []string{"CatNumber"}, "G3551-00"},
		{"absent atomic defaults to empty", []string{"CatPrefix"}, ""},
		{"table", []string{"CatCollectionName_tab"}, []any{"Rocks & Ores", "Minerals"}},
		{
			"table with trailing base field",
			[]string{"CatCollectionName_tab", "CatCollectionName"},
			[]any{"Rocks & Ores", "Minerals"},
		},
		{"absent table defaults to empty", []string{"CatCollectorRole_tab"}, []any{}},
		{"reference trailing field", []string{"LocPermanentLocationRef", "LocLevel1"}, "NMNH"},
		{"dotted path", []string{"LocPermanentLocationRef.LocLevel1"}, "NMNH"},
		{"slash path", []string{"LocPermanentLocationRef/LocLevel1"}, "NMNH"},
		{
			"reference table trailing field",
			[]string{"CatCollectorsRef_tab", "irn"},
			[]any{"1001", "1002"},
		},
		{
			"reference table trailing field keeps row alignment",
			[]string{"CatCollectorsRef_tab", "NamLast"},
			[]any{"Smith", ""},
		},
		{
			"nested table",
			[]string{"CatOtherCountsValue_nesttab"},
			[]any{[]any{"1", "2"}, []any{"3"}},
		},
		{
			"nested table with explicit inner segment",
			[]string{"CatOtherCountsValue_nesttab", "CatOtherCountsValue_nesttab_inner"},
			[]any{[]any{"1", "2"}, []any{"3"}},
		},
		{
			"absent nested table defaults to one empty row",
			[]string{"CatDimensions_nesttab"},
			[]any{[]any{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rec.SmartPull(tt.path...)
			if err != nil {
				t.Fatalf("SmartPull(%v) error = %v", tt.path, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SmartPull(%v) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSmartPullReferenceTagsModule(t *testing.T) {
	rec := sampleRecord(t)

	got, err := rec.SmartPull("LocPermanentLocationRef")
	if err != nil {
		t.Fatalf("SmartPull() error = %v", err)
	}
	loc, ok := got.(*Record)
	if !ok {
		t.Fatalf("SmartPull() = %T, want *Record", got)
	}
	if loc.Module() != "elocations" {
		t.Errorf("Module() = %q, want elocations", loc.Module())
	}
	if val, _ := loc.Pull("LocLevel1"); val != "NMNH" {
		t.Errorf("Pull(LocLevel1) = %v, want NMNH", val)
	}
}

func TestSmartPullReferenceTableTagsRows(t *testing.T) {
	rec := sampleRecord(t)

	got, err := rec.SmartPull("CatCollectorsRef_tab")
	if err != nil {
		t.Fatalf("SmartPull() error = %v", err)
	}
	rows, ok := got.([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("SmartPull() = %v, want two rows", got)
	}
	for i, row := range rows {
		rec, ok := row.(*Record)
		if !ok {
			t.Fatalf("row %d = %T, want *Record", i, row)
		}
		if rec.Module() != "eparties" {
			t.Errorf("row %d Module() = %q, want eparties", i, rec.Module())
		}
	}
}

func TestSmartPullReferenceTableInsideReference(t *testing.T) {
	rec := mustExpand(t, map[string]any{
		"BioEventSiteRef": map[string]any{
			"LocCollectorsRef_tab": []any{
				"12345",
				map[string]any{"NamLast": "Abbott"},
			},
		},
	})

	tests := []struct {
		name string
		path string
		want any
	}{
		{"row identifiers", "BioEventSiteRef.LocCollectorsRef_tab.irn", []any{"12345", ""}},
		{"row fields keep alignment", "BioEventSiteRef.LocCollectorsRef_tab.NamLast", []any{"", "Abbott"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rec.SmartPull(tt.path)
			if err != nil {
				t.Fatalf("SmartPull(%q) error = %v", tt.path, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SmartPull(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestGetRows(t *testing.T) {
	rec := sampleRecord(t)

	got := rec.GetRows("CatCollectionName_tab")
	want := []any{"Rocks & Ores", "Minerals"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetRows() = %v, want %v", got, want)
	}

	if got := rec.GetRows("CatCollectorRole_tab"); len(got) != 0 {
		t.Errorf("GetRows() = %v, want empty for an absent table", got)
	}
}

func TestGetReference(t *testing.T) {
	rec := sampleRecord(t)

	rows, ok := rec.GetReference("CatCollectorsRef_tab").([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("GetReference() = %v, want two rows", rows)
	}
	first, ok := rows[0].(*Record)
	if !ok {
		t.Fatalf("row 0 = %T, want *Record", rows[0])
	}
	if first.Module() != "eparties" {
		t.Errorf("row 0 Module() = %q, want eparties", first.Module())
	}

	vals := rec.GetReference("CatCollectorsRef_tab", "irn")
	want := []any{"1001", "1002"}
	if !reflect.DeepEqual(vals, want) {
		t.Errorf("GetReference(irn) = %v, want %v", vals, want)
	}

	if got := rec.GetReference("CatNumber"); !reflect.DeepEqual(got, []any{}) {
		t.Errorf("GetReference() = %v, want empty for a non-reference path", got)
	}
}

func TestSmartPullAbsentReference(t *testing.T) {
	rec := sampleRecord(t)

	got, err := rec.SmartPull("BioEventSiteRef")
	if err != nil {
		t.Fatalf("SmartPull() error = %v", err)
	}
	site, ok := got.(*Record)
	if !ok {
		t.Fatalf("SmartPull() = %T, want *Record", got)
	}
	if site.Len() != 0 {
		t.Errorf("Len() = %d, want 0", site.Len())
	}
	if site.Module() != "elocations" {
		t.Errorf("Module() = %q, want elocations", site.Module())
	}
}

func TestSmartPullUnknownPath(t *testing.T) {
	rec := sampleRecord(t)

	tests := []struct {
		name string
		path []string
	}{
		{"unknown field", []string{"Bogus"}},
		{"unknown foreign field", []string{"LocPermanentLocationRef", "Bogus"}},
		{"empty path", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := rec.SmartPull(tt.path...); err == nil {
				t.Errorf("SmartPull(%v) expected error, got nil", tt.path)
			}
		})
	}
}

func TestSmartPullUnknownPathError(t *testing.T) {
	rec := sampleRecord(t)
	_, err := rec.SmartPull("Bogus")
	if !errors.Is(err, schema.ErrUnknownPath) {
		t.Errorf("SmartPull() error = %v, want ErrUnknownPath", err)
	}
}

func TestSmartPullWithoutCatalogNeverChecks(t *testing.T) {
	rec := FromMap("ecatalogue", nil, map[string]any{"CatNumber": "G3551-00"})

	got, err := rec.SmartPull("AnythingGoes")
	if err != nil {
		t.Fatalf("SmartPull() error = %v", err)
	}
	if got != "" {
		t.Errorf("SmartPull() = %v, want empty string", got)
	}
}
