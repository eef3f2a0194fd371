package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/weiihann/navbench/table"
)

// Section is one labelled table of a JSON summary.
type Section[R any] struct {
	Label string
	Table *table.Table[R]
}

type jsonSection struct {
	Label   string           `json:"label"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// GenerateJSON writes sections as indented JSON to w. Each row becomes an
// object holding its key under "key" and every schema field under its
// export name.
func GenerateJSON[R any](w io.Writer, sections []Section[R]) error {
	out := make([]jsonSection, 0, len(sections))

	for _, s := range sections {
		if s.Table == nil {
			return fmt.Errorf("section %q has no table", s.Label)
		}

		schema := s.Table.Schema()
		js := jsonSection{
			Label:   s.Label,
			Columns: schema.Names(),
			Rows:    make([]map[string]any, 0, s.Table.Len()),
		}

		for key, row := range s.Table.Rows() {
			obj := make(map[string]any, schema.Len()+1)
			obj["key"] = key

			for _, f := range schema.Fields() {
				obj[f.Name] = f.Get(&row).Any()
			}

			js.Rows = append(js.Rows, obj)
		}

		out = append(out, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
