package emuxml

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/emudata/emurec/emu"
	"github.com/emudata/emurec/schema"
)

func testCatalog(t *testing.T) schema.Catalog {
	t.Helper()
	cat, err := schema.NewStatic(map[string]schema.ModuleSpec{
		"ecatalogue": {
			Fields: map[string]schema.FieldSpec{
				"irn":                         {},
				"CatNumber":                   {},
				"CatCollectionName_tab":       {},
				"NotNmnhText0":                {},
				"CatOtherCountsValue_nesttab": {},
				"LocPermanentLocationRef":     {Ref: "elocations"},
				"CatCollectorsRef_tab":        {Ref: "eparties"},
			},
		},
		"elocations": {
			Fields: map[string]schema.FieldSpec{"irn": {}, "LocLevel1": {}},
		},
		"eparties": {
			Fields: map[string]schema.FieldSpec{"irn": {}, "NamLast": {}},
		},
	})
	if err != nil {
		t.Fatalf("NewStatic() error = %v", err)
	}
	return cat
}

func collect(t *testing.T, rd *Reader) ([]*emu.Record, []error) {
	t.Helper()
	var recs []*emu.Record
	var errs []error
	for rec, err := range rd.Records(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, errs
}

func TestReaderParsesExport(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<table name="ecatalogue">
  <tuple>
    <atom name="irn">1234567</atom>
    <atom name="CatNumber">G3551-00</atom>
    <table name="CatCollectionName_tab">
      <tuple><atom name="CatCollectionName">Rocks</atom></tuple>
      <tuple><atom name="CatCollectionName"></atom></tuple>
    </table>
    <tuple name="LocPermanentLocationRef">
      <atom name="irn">1003604</atom>
    </tuple>
  </tuple>
  <tuple>
    <atom name="irn">7654321</atom>
  </tuple>
</table>`

	rd := NewReader(strings.NewReader(doc), testCatalog(t), zerolog.Nop())
	recs, errs := collect(t, rd)
	if len(errs) != 0 {
		t.Fatalf("Records() errors = %v", errs)
	}
	if len(recs) != 2 {
		t.Fatalf("Records() = %d records, want 2", len(recs))
	}
	if got := rd.Module(); got != "ecatalogue" {
		t.Errorf("Module() = %q, want ecatalogue", got)
	}

	want := map[string]any{
		"irn":       "1234567",
		"CatNumber": "G3551-00",
		"CatCollectionName_tab": []any{
			map[string]any{"CatCollectionName": "Rocks"},
		},
		"LocPermanentLocationRef": map[string]any{"irn": "1003604"},
	}
	if got := recs[0].Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("record 0 = %v, want %v", got, want)
	}
	if got := recs[0].Module(); got != "ecatalogue" {
		t.Errorf("record 0 module = %q, want ecatalogue", got)
	}
	if got := recs[1].Map(); !reflect.DeepEqual(got, map[string]any{"irn": "7654321"}) {
		t.Errorf("record 1 = %v", got)
	}
}

func TestReaderKeepsGapRowsAboveContent(t *testing.T) {
	doc := `<table name="ecatalogue">
  <tuple>
    <atom name="irn">1234567</atom>
    <table name="CatCollectionName_tab">
      <tuple></tuple>
      <tuple><atom name="CatCollectionName">Rocks</atom></tuple>
    </table>
  </tuple>
</table>`

	rd := NewReader(strings.NewReader(doc), testCatalog(t), zerolog.Nop())
	recs, errs := collect(t, rd)
	if len(errs) != 0 || len(recs) != 1 {
		t.Fatalf("Records() = %d records, errors %v", len(recs), errs)
	}

	val, err := recs[0].Pull("CatCollectionName_tab")
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	rows := val.([]any)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want gap row preserved", len(rows))
	}
	if gap := rows[0].(*emu.Record); gap.Len() != 0 {
		t.Errorf("gap row = %v, want empty", gap.Map())
	}
}

func TestReaderRejectsUnknownPopulatedField(t *testing.T) {
	doc := `<table name="ecatalogue">
  <tuple><atom name="Bogus">x</atom></tuple>
  <tuple><atom name="irn">7654321</atom></tuple>
</table>`

	rd := NewReader(strings.NewReader(doc), testCatalog(t), zerolog.Nop())
	recs, errs := collect(t, rd)
	if len(errs) != 1 || !errors.Is(errs[0], schema.ErrUnknownPath) {
		t.Fatalf("Records() errors = %v, want one ErrUnknownPath", errs)
	}
	// The bad record does not stop the stream.
	if len(recs) != 1 {
		t.Errorf("Records() = %d records, want 1", len(recs))
	}
}

func TestReaderMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"tuple outside table", `<tuple><atom name="irn">1</atom></tuple>`},
		{"module table without name", `<table><tuple></tuple></table>`},
		{"truncated document", `<table name="ecatalogue"><tuple>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd := NewReader(strings.NewReader(tt.doc), testCatalog(t), zerolog.Nop())
			_, errs := collect(t, rd)
			if len(errs) == 0 {
				t.Error("Records() expected an error, got none")
			}
		})
	}
}

func TestReaderContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rd := NewReader(strings.NewReader(`<table name="ecatalogue"></table>`), testCatalog(t), zerolog.Nop())
	var errs []error
	for _, err := range rd.Records(ctx) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 1 || !errors.Is(errs[0], context.Canceled) {
		t.Errorf("Records() errors = %v, want context.Canceled", errs)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	cat := testCatalog(t)
	rec, err := emu.FromMap("ecatalogue", cat, map[string]any{
		"CatNumber":                   "G3551-00",
		"CatCollectionName_tab":       []any{"Rocks", "Minerals"},
		"LocPermanentLocationRef":     "1003604",
		"CatCollectorsRef_tab":        []any{"1001"},
		"CatOtherCountsValue_nesttab": []any{[]any{"1", "2"}},
	}).Expand()
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	var buf bytes.Buffer
	wr := NewWriter(&buf, "ecatalogue", zerolog.Nop())
	if err := wr.Write(rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := wr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	rd := NewReader(&buf, cat, zerolog.Nop())
	recs, errs := collect(t, rd)
	if len(errs) != 0 || len(recs) != 1 {
		t.Fatalf("round trip = %d records, errors %v", len(recs), errs)
	}
	if got := recs[0].Map(); !reflect.DeepEqual(got, rec.Map()) {
		t.Errorf("round trip = %v, want %v", got, rec.Map())
	}
}

func TestWriterRowDirectives(t *testing.T) {
	cat := testCatalog(t)
	rec, err := emu.FromMap("ecatalogue", cat, map[string]any{
		"irn":             "1234567",
		"NotNmnhText0(+)": []any{"appended note"},
	}).Expand()
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	var buf bytes.Buffer
	wr := NewWriter(&buf, "ecatalogue", zerolog.Nop())
	if err := wr.Write(rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := wr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `<tuple row="+">`) {
		t.Errorf("output lacks append row attribute:\n%s", out)
	}
	if !strings.Contains(out, `<table name="NotNmnhText0">`) {
		t.Errorf("output lacks clean column name:\n%s", out)
	}
	if strings.Contains(out, "(+)") {
		t.Errorf("directive suffix leaked into output:\n%s", out)
	}
}

func TestWriterRejectsInvalidRecord(t *testing.T) {
	cat := testCatalog(t)
	rec := emu.FromMap("ecatalogue", cat, map[string]any{"Bogus": "x"})

	var buf bytes.Buffer
	wr := NewWriter(&buf, "ecatalogue", zerolog.Nop())
	if err := wr.Write(rec); !errors.Is(err, schema.ErrUnknownPath) {
		t.Fatalf("Write() error = %v, want ErrUnknownPath", err)
	}
	if buf.Len() != 0 {
		t.Errorf("failed write left output behind: %q", buf.String())
	}
}

func TestWriterWriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	wr := NewWriter(&buf, "ecatalogue", zerolog.Nop())
	if err := wr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := wr.Write(emu.New("ecatalogue", nil)); err == nil {
		t.Error("Write() after Close expected error, got nil")
	}
}
