package table

import "iter"

// Table is an insertion-ordered mapping from row key to row, described by
// a Schema. It is not safe for concurrent use.
type Table[R any] struct {
	schema *Schema[R]
	keys   []string
	rows   map[string]R
}

// New returns an empty Table for rows described by schema.
func New[R any](schema *Schema[R]) *Table[R] {
	return &Table[R]{
		schema: schema,
		rows:   make(map[string]R),
	}
}

// Schema returns the table's row schema.
func (t *Table[R]) Schema() *Schema[R] { return t.schema }

// Len returns the number of rows.
func (t *Table[R]) Len() int { return len(t.keys) }

// Clear removes all rows.
func (t *Table[R]) Clear() {
	t.keys = nil
	t.rows = make(map[string]R)
}

// AddRow appends row under key. If key is already present its value is
// replaced and it keeps its original position.
func (t *Table[R]) AddRow(key string, row R) {
	if _, ok := t.rows[key]; !ok {
		t.keys = append(t.keys, key)
	}

	t.rows[key] = row
}

// Get returns the row stored under key.
func (t *Table[R]) Get(key string) (R, bool) {
	row, ok := t.rows[key]

	return row, ok
}

// Rows yields (key, row) pairs in insertion order. The sequence can be
// ranged over any number of times.
func (t *Table[R]) Rows() iter.Seq2[string, R] {
	return func(yield func(string, R) bool) {
		for _, k := range t.keys {
			if !yield(k, t.rows[k]) {
				return
			}
		}
	}
}

// Keys returns a copy of the row keys in insertion order.
func (t *Table[R]) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Clone returns a copy of the table sharing the same schema.
func (t *Table[R]) Clone() *Table[R] {
	c := &Table[R]{
		schema: t.schema,
		keys:   t.Keys(),
		rows:   make(map[string]R, len(t.rows)),
	}
	for k, r := range t.rows {
		c.rows[k] = r
	}

	return c
}
