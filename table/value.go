// Package table provides schema-described, insertion-ordered tables of rows
// and their import from delimited text.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the type of a schema field.
type Kind uint8

const (
	KindInt32 Kind = iota
	KindInt64
	KindFloat
	KindBool
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	default:
		return "Unknown"
	}
}

// Value is a single field value tagged with its kind.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

// Int32Value returns an Int32 value.
func Int32Value(v int32) Value { return Value{kind: KindInt32, i: int64(v)} }

// Int64Value returns an Int64 value.
func Int64Value(v int64) Value { return Value{kind: KindInt64, i: v} }

// FloatValue returns a Float value.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// BoolValue returns a Bool value.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// StringValue returns a String value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Any returns the value as its native Go type.
func (v Value) Any() any {
	switch v.kind {
	case KindInt32:
		return int32(v.i)
	case KindInt64:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return v.s
	}
}

// String renders the value as text: floats with exactly two decimals,
// booleans as true/false, integers in plain decimal, strings verbatim.
func (v Value) String() string {
	switch v.kind {
	case KindInt32, KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', 2, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// ParseValue parses text as a value of the given kind.
func ParseValue(kind Kind, text string) (Value, error) {
	if kind != KindString {
		text = strings.TrimSpace(text)
	}

	switch kind {
	case KindInt32:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("parse int32 %q: %w", text, err)
		}

		return Int32Value(int32(n)), nil

	case KindInt64:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse int64 %q: %w", text, err)
		}

		return Int64Value(n), nil

	case KindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse float %q: %w", text, err)
		}

		return FloatValue(f), nil

	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, fmt.Errorf("parse bool %q: %w", text, err)
		}

		return BoolValue(b), nil

	case KindString:
		return StringValue(text), nil

	default:
		return Value{}, fmt.Errorf("unknown kind %d", kind)
	}
}
