package emu

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// standardize normalizes a value for label comparison.
func standardize(val any) string {
	return strings.ToUpper(nonAlnum.ReplaceAllString(scalarString(val), ""))
}

// GetMatchingRows returns the values from valueField on rows whose
// labelField matches the given label. Columns are zipped longest so a short
// column cannot shift later rows.
func (r *Record) GetMatchingRows(label, labelField, valueField string) []any {
	labels, err := r.SmartPull(labelField)
	if err != nil {
		return nil
	}
	values, err := r.SmartPull(valueField)
	if err != nil {
		return nil
	}
	want := standardize(label)
	var matches []any
	for _, row := range zipLongest(asSequence(labels), asSequence(values)) {
		if standardize(row[0]) == want {
			matches = append(matches, row[1])
		}
	}
	return matches
}

// GetNote returns the note rows matching the given kind.
func (r *Record) GetNote(kind string) []any {
	return r.GetMatchingRows(kind, "NotNmnhType_tab", "NotNmnhText0")
}

// GetGUID returns the value from the GUID grid for the given kind, or the
// empty string if the record has none. More than one match is an error
// unless allowMultiple is set, in which case the first match is returned.
func (r *Record) GetGUID(kind string, allowMultiple bool) (string, error) {
	matches := r.GetMatchingRows(kind, "AdmGUIDType_tab", "AdmGUIDValue_tab")
	if len(matches) > 1 && !allowMultiple {
		return "", fmt.Errorf("%w: multiple %s values", ErrAmbiguousRow, kind)
	}
	if len(matches) == 0 {
		return "", nil
	}
	return scalarString(matches[0]), nil
}

// GetURL returns the ark link for the record's EZID, if assigned.
func (r *Record) GetURL() string {
	ezid, err := r.GetGUID("EZID", false)
	if err != nil || ezid == "" {
		return ""
	}
	return "http://n2t.net/" + ezid
}

// dateLayouts are the canonical layouts of date fields, most specific
// first. They are tried before the free-text parser so partial dates like
// "1969-07" keep their meaning.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
	"02 Jan 2006",
	"Jan 2006",
}

// GetDate returns the date or date range spanned by two date fields,
// formatted with the given layout. Identical endpoints collapse to a single
// date.
func (r *Record) GetDate(fromField, toField, layout string) (string, error) {
	fields := []string{fromField}
	if toField != "" {
		fields = append(fields, toField)
	}
	var span []string
	for _, field := range fields {
		raw, err := r.SmartPull(field)
		if err != nil {
			return "", err
		}
		s := scalarString(raw)
		if s == "" {
			continue
		}
		parsed, err := parseDate(s)
		if err != nil {
			return "", err
		}
		formatted := parsed.Format(layout)
		if len(span) == 0 || span[len(span)-1] != formatted {
			span = append(span, formatted)
		}
	}
	return strings.Join(span, " to "), nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Legacy records carry verbose forms like "April 26, 1964".
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("emu: unparseable date %q: %w", s, err)
	}
	return t, nil
}

// GetCreatedTime returns the record's creation timestamp in the given
// location.
func (r *Record) GetCreatedTime(loc *time.Location) (time.Time, error) {
	return r.localizedTime("AdmDateInserted", "AdmTimeInserted", loc)
}

// GetModifiedTime returns the record's last-modification timestamp in the
// given location.
func (r *Record) GetModifiedTime(loc *time.Location) (time.Time, error) {
	return r.localizedTime("AdmDateModified", "AdmTimeModified", loc)
}

func (r *Record) localizedTime(dateField, timeField string, loc *time.Location) (time.Time, error) {
	date, err := r.SmartPull(dateField)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := r.SmartPull(timeField)
	if err != nil {
		return time.Time{}, err
	}
	ds, ts := scalarString(date), scalarString(clock)
	if ds == "" || ts == "" {
		return time.Time{}, fmt.Errorf("%w: %s and %s are both required", ErrPathNotFound, dateField, timeField)
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02T15:04:05", ds+"T"+ts, loc)
}

// Zip aligns the given table fields row by row, padding short columns with
// empty strings.
func (r *Record) Zip(fields ...string) ([][]any, error) {
	cols := make([][]any, len(fields))
	for i, field := range fields {
		val, err := r.SmartPull(field)
		if err != nil {
			return nil, err
		}
		cols[i] = asSequence(val)
	}
	return zipLongest(cols...), nil
}

func asSequence(val any) []any {
	switch v := val.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

func zipLongest(cols ...[]any) [][]any {
	maxLen := 0
	for _, col := range cols {
		if len(col) > maxLen {
			maxLen = len(col)
		}
	}
	rows := make([][]any, maxLen)
	for i := range rows {
		row := make([]any, len(cols))
		for j, col := range cols {
			if i < len(col) {
				row[j] = col[i]
			} else {
				row[j] = ""
			}
		}
		rows[i] = row
	}
	return rows
}
