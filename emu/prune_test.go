package emu

import (
	"reflect"
	"testing"
)

func TestPrune(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
		want map[string]any
	}{
		{
			"blank strings removed",
			map[string]any{"irn": "1234567", "CatNumber": ""},
			map[string]any{"irn": "1234567"},
		},
		{
			"whitespace counts as blank",
			map[string]any{"CatNumber": "  \t"},
			map[string]any{},
		},
		{
			"numbers kept zero included",
			map[string]any{"count": 0, "weight": 0.0},
			map[string]any{"count": 0, "weight": 0.0},
		},
		{
			"false removed true kept",
			map[string]any{"a": false, "b": true},
			map[string]any{"b": true},
		},
		{
			"nil removed",
			map[string]any{"a": nil, "b": "x"},
			map[string]any{"b": "x"},
		},
		{
			"empty containers removed",
			map[string]any{"a": []any{}, "b": map[string]any{}},
			map[string]any{},
		},
		{
			"record of blanks removed entirely",
			map[string]any{"a": map[string]any{"b": "", "c": nil}},
			map[string]any{},
		},
		{
			"record with one survivor kept",
			map[string]any{"a": map[string]any{"b": "", "c": "x"}},
			map[string]any{"a": map[string]any{"c": "x"}},
		},
		{
			"trailing blanks trimmed scan stops at survivor",
			map[string]any{"a": []any{"", "x", ""}},
			map[string]any{"a": []any{"", "x"}},
		},
		{
			"all-blank sequence removed",
			map[string]any{"a": []any{"", ""}},
			map[string]any{},
		},
		{
			"zero row ends the scan",
			map[string]any{"a": []any{"", 0}},
			map[string]any{"a": []any{"", 0}},
		},
		{
			"nested rows cascade",
			map[string]any{"a": []any{
				map[string]any{"b": "x"},
				map[string]any{"b": ""},
			}},
			map[string]any{"a": []any{
				map[string]any{"b": "x"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := FromMap("ecatalogue", nil, tt.m)
			rec.Prune()
			if got := rec.Map(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Prune() left %v, want %v", got, tt.want)
			}
		})
	}
}
