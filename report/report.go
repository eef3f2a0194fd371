// Package report renders benchmark tables as spreadsheet-friendly text.
package report

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/weiihann/navbench/table"
)

// MissingSchemaLine replaces a table that could not be exported.
const MissingSchemaLine = "Missing row schema!\n"

// NotAvailable is rendered where a ratio has no defined value.
const NotAvailable = "N/A"

// keyPlaceholder heads the key column when no key column name is given.
const keyPlaceholder = "---"

// ErrMissingSchema is returned when a table is exported without a schema.
var ErrMissingSchema = errors.New("missing row schema")

// ExportCSV renders t as comma separated text using only schema.
//
// The header is the key column name (or "---") followed by every field's
// export name. Each row is the unquoted key followed by every field value
// wrapped in double quotes, with embedded quotes doubled. A field named
// keyColumn is left out of both header and rows.
func ExportCSV[R any](
	t *table.Table[R],
	schema *table.Schema[R],
	keyColumn string,
) (string, error) {
	if schema.Len() == 0 {
		return "", ErrMissingSchema
	}

	var b strings.Builder

	if keyColumn != "" {
		b.WriteString(keyColumn)
	} else {
		b.WriteString(keyPlaceholder)
	}

	fields := make([]table.Field[R], 0, schema.Len())
	for _, f := range schema.Fields() {
		if f.Name == keyColumn {
			continue
		}

		fields = append(fields, f)
		b.WriteByte(',')
		b.WriteString(f.Name)
	}

	b.WriteByte('\n')

	if t == nil {
		return b.String(), nil
	}

	for key, row := range t.Rows() {
		b.WriteString(key)

		for _, f := range fields {
			b.WriteString(`,"`)
			b.WriteString(strings.ReplaceAll(f.Get(&row).String(), `"`, `""`))
			b.WriteByte('"')
		}

		b.WriteByte('\n')
	}

	return b.String(), nil
}

// FormatFloat renders v with exactly two decimal places.
func FormatFloat(v float64) string {
	return table.FloatValue(v).String()
}

// FormatPercent renders a proportion as a whole percentage, e.g. 1.234
// becomes "123%". Proportions that are not finite, or whose percentage
// does not fit in an int64, render as NotAvailable.
func FormatPercent(p float64) string {
	pct := math.Round(p * 100)
	if math.IsNaN(pct) || math.Abs(pct) >= 1<<63 {
		return NotAvailable
	}

	return strconv.FormatInt(int64(pct), 10) + "%"
}
