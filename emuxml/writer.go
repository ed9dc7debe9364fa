package emuxml

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/emudata/emurec/emu"
	"github.com/emudata/emurec/schema"
)

// Writer emits records as an import file for the external system. Records
// are expanded before writing, so callers may hand over shorthand forms.
// Row directives kept on update records become row attributes: append rows
// carry row="+", prepend rows row="-", and an overwrite group replaces the
// whole column with no attribute.
type Writer struct {
	enc     *xml.Encoder
	logger  zerolog.Logger
	module  string
	started bool
	closed  bool
	count   int
}

// NewWriter prepares an import file for the given module. The module table
// element is written lazily on the first record.
func NewWriter(w io.Writer, module string, logger zerolog.Logger) *Writer {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return &Writer{enc: enc, logger: logger, module: module}
}

// Write expands a record and appends it as a <tuple> row.
func (wr *Writer) Write(rec *emu.Record) error {
	if wr.closed {
		return fmt.Errorf("emuxml: write after close")
	}
	expanded, err := rec.Expand()
	if err != nil {
		return err
	}
	if !wr.started {
		if err := wr.start(); err != nil {
			return err
		}
	}
	if err := wr.writeRecord(expanded, element("tuple")); err != nil {
		return err
	}
	wr.count++
	return nil
}

// Close terminates the module table and flushes buffered output.
func (wr *Writer) Close() error {
	if wr.closed {
		return nil
	}
	wr.closed = true
	if !wr.started {
		if err := wr.start(); err != nil {
			return err
		}
	}
	if err := wr.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "table"}}); err != nil {
		return fmt.Errorf("emuxml: %w", err)
	}
	if err := wr.enc.Flush(); err != nil {
		return fmt.Errorf("emuxml: %w", err)
	}
	wr.logger.Info().Int("records", wr.count).Str("module", wr.module).Msg("finished writing import")
	return nil
}

func (wr *Writer) start() error {
	proc := xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}
	if err := wr.enc.EncodeToken(proc); err != nil {
		return fmt.Errorf("emuxml: %w", err)
	}
	if err := wr.enc.EncodeToken(element("table", "name", wr.module)); err != nil {
		return fmt.Errorf("emuxml: %w", err)
	}
	wr.started = true
	return nil
}

func (wr *Writer) writeRecord(rec *emu.Record, start xml.StartElement) error {
	if err := wr.enc.EncodeToken(start); err != nil {
		return fmt.Errorf("emuxml: %w", err)
	}
	for _, key := range rec.Keys() {
		val, _ := rec.Get(key)
		clean, directive := schema.SplitDirective(key)
		if err := wr.writeField(clean, directive, val); err != nil {
			return err
		}
	}
	if err := wr.enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("emuxml: %w", err)
	}
	return nil
}

func (wr *Writer) writeField(name string, directive schema.Directive, val any) error {
	switch v := val.(type) {
	case *emu.Record:
		return wr.writeRecord(v, element("tuple", "name", name))
	case []any:
		start := element("table", "name", name)
		if err := wr.enc.EncodeToken(start); err != nil {
			return fmt.Errorf("emuxml: %w", err)
		}
		for _, item := range v {
			row, ok := item.(*emu.Record)
			if !ok {
				return fmt.Errorf("%w: %s row is not a tuple", ErrMalformed, name)
			}
			if err := wr.writeRecord(row, rowElement(directive)); err != nil {
				return err
			}
		}
		if err := wr.enc.EncodeToken(start.End()); err != nil {
			return fmt.Errorf("emuxml: %w", err)
		}
		return nil
	default:
		return wr.writeAtom(name, val)
	}
}

func (wr *Writer) writeAtom(name string, val any) error {
	start := element("atom", "name", name)
	if err := wr.enc.EncodeToken(start); err != nil {
		return fmt.Errorf("emuxml: %w", err)
	}
	if val != nil {
		text := fmt.Sprint(val)
		if text != "" {
			if err := wr.enc.EncodeToken(xml.CharData(text)); err != nil {
				return fmt.Errorf("emuxml: %w", err)
			}
		}
	}
	if err := wr.enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("emuxml: %w", err)
	}
	return nil
}

// rowElement builds the <tuple> start for one table row, carrying the row
// attribute when the column's directive asks for append or prepend.
func rowElement(directive schema.Directive) xml.StartElement {
	switch directive {
	case schema.DirectiveAppend:
		return element("tuple", "row", "+")
	case schema.DirectivePrepend:
		return element("tuple", "row", "-")
	default:
		return element("tuple")
	}
}

func element(local string, attrs ...string) xml.StartElement {
	start := xml.StartElement{Name: xml.Name{Local: local}}
	for i := 0; i+1 < len(attrs); i += 2 {
		start.Attr = append(start.Attr, xml.Attr{
			Name:  xml.Name{Local: attrs[i]},
			Value: attrs[i+1],
		})
	}
	return start
}
