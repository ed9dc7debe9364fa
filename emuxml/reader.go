// Package emuxml reads and writes the generic XML interchange format of the
// external collection-management system: a module <table> of <tuple> rows,
// where each field is an <atom>, a nested <tuple> for a reference, or a
// <table> of <tuple> rows for any table kind. Records stream one at a time
// so memory stays bounded to a single record.
package emuxml

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emudata/emurec/emu"
	"github.com/emudata/emurec/schema"
)

// ErrMalformed indicates the XML structure does not follow the interchange
// format.
var ErrMalformed = errors.New("emuxml: malformed export")

const defaultProgressEvery = 5000

// Reader streams records out of an export file. Every record is expanded
// and validated against the catalog before it is yielded: a populated field
// the schema does not know fails the record rather than dropping data.
type Reader struct {
	dec           *xml.Decoder
	catalog       schema.Catalog
	logger        zerolog.Logger
	module        string
	progressEvery int
}

// NewReader wraps an export stream. The catalog may be nil, in which case
// schema validation is skipped.
func NewReader(r io.Reader, cat schema.Catalog, logger zerolog.Logger) *Reader {
	return &Reader{
		dec:           xml.NewDecoder(r),
		catalog:       cat,
		logger:        logger,
		progressEvery: defaultProgressEvery,
	}
}

// SetProgressEvery changes how often read progress is logged. Zero disables
// progress logging.
func (rd *Reader) SetProgressEvery(n int) { rd.progressEvery = n }

// Module returns the module of the export, known once the outer table
// element has been read.
func (rd *Reader) Module() string { return rd.module }

// Records returns a lazy iterator over the export. The context cancels the
// stream between records. A record that fails expansion is yielded as an
// error; iteration may continue past it.
func (rd *Reader) Records(ctx context.Context) iter.Seq2[*emu.Record, error] {
	return func(yield func(*emu.Record, error) bool) {
		count := 0
		for {
			if ctx != nil && ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			tok, err := rd.dec.Token()
			if errors.Is(err, io.EOF) {
				rd.logger.Info().Int("records", count).Str("module", rd.module).Msg("finished reading export")
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("emuxml: %w", err))
				return
			}
			start, ok := tok.(xml.StartElement)
			if !ok {
				continue
			}
			switch start.Name.Local {
			case "table":
				if rd.module == "" {
					rd.module = nameAttr(start)
					if rd.module == "" {
						yield(nil, fmt.Errorf("%w: module table has no name", ErrMalformed))
						return
					}
					continue
				}
				if err := rd.dec.Skip(); err != nil {
					yield(nil, fmt.Errorf("emuxml: %w", err))
					return
				}
			case "tuple":
				if rd.module == "" {
					yield(nil, fmt.Errorf("%w: tuple outside module table", ErrMalformed))
					return
				}
				rec, err := rd.parseTuple(rd.module)
				if err != nil {
					yield(nil, err)
					return
				}
				expanded, err := rec.Expand()
				if err != nil {
					if !yield(nil, err) {
						return
					}
					continue
				}
				count++
				if rd.progressEvery > 0 && count%rd.progressEvery == 0 {
					rd.logger.Info().Int("records", count).Str("module", rd.module).Msg("read progress")
				}
				if !yield(expanded, nil) {
					return
				}
			default:
				if err := rd.dec.Skip(); err != nil {
					yield(nil, fmt.Errorf("emuxml: %w", err))
					return
				}
			}
		}
	}
}

// parseTuple reads one <tuple> subtree into a record.
func (rd *Reader) parseTuple(module string) (*emu.Record, error) {
	rec := emu.New(module, rd.catalog)
	for {
		tok, err := rd.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("emuxml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := nameAttr(t)
			if name == "" {
				return nil, fmt.Errorf("%w: %s element has no name", ErrMalformed, t.Name.Local)
			}
			switch t.Name.Local {
			case "atom":
				text, err := rd.readText()
				if err != nil {
					return nil, err
				}
				if err := rec.Push(strings.TrimSpace(text), name); err != nil {
					return nil, err
				}
			case "table":
				rows, err := rd.parseTable()
				if err != nil {
					return nil, err
				}
				if err := rec.Push(rows, name); err != nil {
					return nil, err
				}
			case "tuple":
				sub, err := rd.parseTuple("")
				if err != nil {
					return nil, err
				}
				if err := rec.Push(sub, name); err != nil {
					return nil, err
				}
			default:
				if err := rd.dec.Skip(); err != nil {
					return nil, fmt.Errorf("emuxml: %w", err)
				}
			}
		case xml.EndElement:
			return rec, nil
		}
	}
}

// parseTable reads the <tuple> rows of a table. Blank rows that trail the
// last populated row are dropped, matching how the external system renders
// columns; blank rows above a populated one are kept so columns stay
// aligned.
func (rd *Reader) parseTable() ([]any, error) {
	rows := []any{}
	for {
		tok, err := rd.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("emuxml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tuple" {
				if err := rd.dec.Skip(); err != nil {
					return nil, fmt.Errorf("emuxml: %w", err)
				}
				continue
			}
			row, err := rd.parseTuple("")
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		case xml.EndElement:
			for len(rows) > 0 {
				if last, ok := rows[len(rows)-1].(*emu.Record); ok && !emu.Populated(last) {
					rows = rows[:len(rows)-1]
					continue
				}
				break
			}
			return rows, nil
		}
	}
}

func (rd *Reader) readText() (string, error) {
	var b strings.Builder
	for {
		tok, err := rd.dec.Token()
		if err != nil {
			return "", fmt.Errorf("emuxml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			return b.String(), nil
		case xml.StartElement:
			if err := rd.dec.Skip(); err != nil {
				return "", fmt.Errorf("emuxml: %w", err)
			}
		}
	}
}

func nameAttr(start xml.StartElement) string {
	for _, attr := range start.Attr {
		if attr.Name.Local == "name" {
			return attr.Value
		}
	}
	return ""
}
