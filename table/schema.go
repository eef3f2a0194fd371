package table

import "fmt"

// Field describes one named, typed column of a row type R.
type Field[R any] struct {
	Name string
	Kind Kind

	get func(*R) Value
	set func(*R, Value)
}

// Get reads the field from row.
func (f Field[R]) Get(row *R) Value { return f.get(row) }

// Set writes v into row. The kind of v must match the field kind.
func (f Field[R]) Set(row *R, v Value) { f.set(row, v) }

// Int32 declares an int32 field backed by the location ptr returns.
func Int32[R any](name string, ptr func(*R) *int32) Field[R] {
	return Field[R]{
		Name: name,
		Kind: KindInt32,
		get:  func(r *R) Value { return Int32Value(*ptr(r)) },
		set:  func(r *R, v Value) { *ptr(r) = int32(v.i) },
	}
}

// Int64 declares an int64 field.
func Int64[R any](name string, ptr func(*R) *int64) Field[R] {
	return Field[R]{
		Name: name,
		Kind: KindInt64,
		get:  func(r *R) Value { return Int64Value(*ptr(r)) },
		set:  func(r *R, v Value) { *ptr(r) = v.i },
	}
}

// Float declares a floating point field.
func Float[R any](name string, ptr func(*R) *float64) Field[R] {
	return Field[R]{
		Name: name,
		Kind: KindFloat,
		get:  func(r *R) Value { return FloatValue(*ptr(r)) },
		set:  func(r *R, v Value) { *ptr(r) = v.f },
	}
}

// Bool declares a boolean field.
func Bool[R any](name string, ptr func(*R) *bool) Field[R] {
	return Field[R]{
		Name: name,
		Kind: KindBool,
		get:  func(r *R) Value { return BoolValue(*ptr(r)) },
		set:  func(r *R, v Value) { *ptr(r) = v.b },
	}
}

// String declares a string field.
func String[R any](name string, ptr func(*R) *string) Field[R] {
	return Field[R]{
		Name: name,
		Kind: KindString,
		get:  func(r *R) Value { return StringValue(*ptr(r)) },
		set:  func(r *R, v Value) { *ptr(r) = v.s },
	}
}

// Schema is the ordered field list of a row type. Field order is column
// order. A Schema is built once and never mutated.
type Schema[R any] struct {
	fields []Field[R]
	index  map[string]int
}

// NewSchema builds a Schema from fields in column order. It panics on an
// empty or duplicate field name, or a field not built by one of the typed
// constructors; those are programming errors in the row declaration.
func NewSchema[R any](fields ...Field[R]) *Schema[R] {
	s := &Schema[R]{
		fields: make([]Field[R], 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	for _, f := range fields {
		if f.Name == "" {
			panic("table: schema field with empty name")
		}
		if f.get == nil || f.set == nil {
			panic(fmt.Sprintf("table: schema field %q has no accessor", f.Name))
		}
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("table: duplicate schema field %q", f.Name))
		}

		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	return s
}

// Len returns the number of fields. A nil Schema has none.
func (s *Schema[R]) Len() int {
	if s == nil {
		return 0
	}

	return len(s.fields)
}

// Fields returns the fields in column order.
func (s *Schema[R]) Fields() []Field[R] {
	if s == nil {
		return nil
	}

	return s.fields
}

// Lookup returns the field with the given export name.
func (s *Schema[R]) Lookup(name string) (Field[R], bool) {
	if s == nil {
		return Field[R]{}, false
	}

	i, ok := s.index[name]
	if !ok {
		return Field[R]{}, false
	}

	return s.fields[i], true
}

// Names returns the export names in column order.
func (s *Schema[R]) Names() []string {
	names := make([]string, 0, s.Len())
	for _, f := range s.Fields() {
		names = append(names, f.Name)
	}

	return names
}
