package emu

import (
	"testing"

	"github.com/emudata/emurec/schema"
)

// testCatalog builds the schema the tests run against: a catalogue module
// with one field of every structural kind, plus the party and location
// modules its references point at.
func testCatalog(t *testing.T) schema.Catalog {
	t.Helper()
	cat, err := schema.NewStatic(map[string]schema.ModuleSpec{
		"ecatalogue": {
			Fields: map[string]schema.FieldSpec{
				"irn":                         {},
				"CatNumber":                   {},
				"CatPrefix":                   {},
				"CatDateCollectedFrom":        {},
				"CatDateCollectedTo":          {},
				"AdmDateInserted":             {},
				"AdmTimeInserted":             {},
				"AdmDateModified":             {},
				"AdmTimeModified":             {},
				"CatCollectionName_tab":       {},
				"NotNmnhType_tab":             {Table: "Notes"},
				"NotNmnhText0":                {Table: "Notes"},
				"AdmGUIDType_tab":             {Table: "GUIDs"},
				"AdmGUIDValue_tab":            {Table: "GUIDs"},
				"CatOtherCountsValue_nesttab": {},
				"CatDimensions_nesttab":       {},
				"LocPermanentLocationRef":     {Ref: "elocations"},
				"BioEventSiteRef":             {Ref: "elocations"},
				"CatCollectorsRef_tab":        {Ref: "eparties", Table: "Collectors"},
				"CatCollectorRole_tab":        {Table: "Collectors"},
			},
			Tables: map[string][]string{
				"Notes":      {"NotNmnhType_tab", "NotNmnhText0"},
				"GUIDs":      {"AdmGUIDType_tab", "AdmGUIDValue_tab"},
				"Collectors": {"CatCollectorsRef_tab", "CatCollectorRole_tab"},
			},
		},
		"elocations": {
			Fields: map[string]schema.FieldSpec{
				"irn":                  {},
				"LocLevel1":            {},
				"LocCollectorsRef_tab": {Ref: "eparties"},
			},
		},
		"eparties": {
			Fields: map[string]schema.FieldSpec{
				"irn":         {},
				"NamLast":     {},
				"NamFullName": {},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewStatic() error = %v", err)
	}
	return cat
}

// mustExpand builds a catalogue record from shorthand and expands it.
func mustExpand(t *testing.T, m map[string]any) *Record {
	t.Helper()
	rec, err := FromMap("ecatalogue", testCatalog(t), m).Expand()
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	return rec
}
