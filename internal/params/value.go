// Package params models request parameters as a string-keyed map of scalar
// or list values.
//
// Parameters arrive loosely typed: query strings carry only strings, code
// building a link may use integers, booleans or its own string-like key
// types. Everything is normalized at the boundary into Map so that the
// signing code sees exactly one representation.
package params

import (
	"strconv"
)

// Value is a parameter value. Concrete types:
//
//   - String
//   - Integer
//   - Bool
//   - List (of scalars only)
type Value interface {
	isValue()
}

// String is a textual parameter value.
type String string

// Integer is a signed 64-bit parameter value.
type Integer int64

// Bool is a boolean parameter value.
type Bool bool

// List is an ordered sequence of scalar values. Lists never nest.
type List []Value

func (String) isValue()  {}
func (Integer) isValue() {}
func (Bool) isValue()    {}
func (List) isValue()    {}

// Text renders a scalar value to its stable textual form: integers in
// decimal, booleans as true/false, strings as is. The second result is
// false for lists and nil.
func Text(v Value) (string, bool) {
	switch t := v.(type) {
	case String:
		return string(t), true
	case Integer:
		return strconv.FormatInt(int64(t), 10), true
	case Bool:
		return strconv.FormatBool(bool(t)), true
	default:
		return "", false
	}
}

// Elements returns the items of a list, or the value itself as a single
// element for scalars.
func Elements(v Value) []Value {
	switch t := v.(type) {
	case List:
		return t
	case nil:
		return nil
	default:
		return []Value{v}
	}
}

// Strings renders every element of v with Text.
func Strings(v Value) []string {
	elems := Elements(v)
	out := make([]string, 0, len(elems))
	for _, elem := range elems {
		if text, ok := Text(elem); ok {
			out = append(out, text)
		}
	}
	return out
}
