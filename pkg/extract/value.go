package extract

import (
	"encoding/json"
	"strconv"
)

type valueKind uint8

const (
	kindMissing valueKind = iota
	kindString
	kindInt
	kindFloat
)

// Value is one extracted value, or the missing marker when extraction could
// not produce one. The zero Value is missing.
type Value struct {
	kind valueKind
	s    string
	i    int
	f    float64
}

// Missing returns the missing marker.
func Missing() Value { return Value{} }

// String wraps a text value.
func String(s string) Value { return Value{kind: kindString, s: s} }

// Int wraps an integer value.
func Int(i int) Value { return Value{kind: kindInt, i: i} }

// Float wraps a decimal value.
func Float(f float64) Value { return Value{kind: kindFloat, f: f} }

// IsMissing reports whether v is the missing marker.
func (v Value) IsMissing() bool { return v.kind == kindMissing }

// Text returns the value as a string and whether it is a text value.
func (v Value) Text() (string, bool) { return v.s, v.kind == kindString }

// IntValue returns the value as an int and whether it is an integer value.
func (v Value) IntValue() (int, bool) { return v.i, v.kind == kindInt }

// FloatValue returns the value as a float64 and whether it is a decimal value.
func (v Value) FloatValue() (float64, bool) { return v.f, v.kind == kindFloat }

// String renders the value as a table cell; missing renders empty.
func (v Value) String() string {
	switch v.kind {
	case kindString:
		return v.s
	case kindInt:
		return strconv.Itoa(v.i)
	case kindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return ""
	}
}

// Any returns the underlying Go value, nil when missing.
func (v Value) Any() any {
	switch v.kind {
	case kindString:
		return v.s
	case kindInt:
		return v.i
	case kindFloat:
		return v.f
	default:
		return nil
	}
}

// MarshalJSON encodes missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// MarshalYAML encodes missing as null.
func (v Value) MarshalYAML() (any, error) {
	return v.Any(), nil
}

// Record maps output names to the values extracted for one listing.
type Record map[string]Value

// Get returns the value stored under name, missing when absent.
func (r Record) Get(name string) Value {
	return r[name]
}
