package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoHeader is returned by LoadCSV when the input has no header line.
var ErrNoHeader = errors.New("missing header line")

// LoadCSV replaces the table contents with rows read from r.
//
// The first header cell names the key column and is otherwise ignored; the
// remaining header cells must be export names of schema fields. Each data
// line starts with the row key followed by one cell per header column.
// Rows start from newRow (the zero value when nil), so columns absent from
// the input keep their defaults. On error the table is left empty.
func (t *Table[R]) LoadCSV(r io.Reader, newRow func() R) error {
	t.Clear()

	if err := t.loadCSV(r, newRow); err != nil {
		t.Clear()

		return err
	}

	return nil
}

func (t *Table[R]) loadCSV(r io.Reader, newRow func() R) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ErrNoHeader
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	columns := make([]Field[R], len(header))
	seen := make(map[string]bool, len(header))

	for i, name := range header[1:] {
		name = strings.TrimSpace(name)

		f, ok := t.schema.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown column %q", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate column %q", name)
		}

		seen[name] = true
		columns[i+1] = f
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}

		line, _ := cr.FieldPos(0)

		if len(record) > len(header) {
			return fmt.Errorf("line %d: %d cells, header has %d",
				line, len(record), len(header))
		}

		key := strings.TrimSpace(record[0])
		if key == "" {
			return fmt.Errorf("line %d: empty row key", line)
		}

		var row R
		if newRow != nil {
			row = newRow()
		}

		for i := 1; i < len(record); i++ {
			v, err := ParseValue(columns[i].Kind, record[i])
			if err != nil {
				return fmt.Errorf("line %d column %s: %w",
					line, columns[i].Name, err)
			}

			columns[i].Set(&row, v)
		}

		t.AddRow(key, row)
	}
}
