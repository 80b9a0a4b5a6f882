// Package value defines the semi-structured data model shared by events,
// script literals and pattern targets.
//
// A Value is one of a closed set of variants: Null, Bool, Int, Float, String,
// Array or *Object. Values are treated as immutable once published; code that
// needs a modified value copies the container it changes.
package value

import (
	"math"
	"strconv"
)

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "record"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a sealed interface; only types in this package implement it.
type Value interface {
	Kind() Kind
	isValue()
}

type Null struct{}

type Bool bool

type Int int64

type Float float64

type String string

type Array []Value

func (Null) Kind() Kind    { return KindNull }
func (Bool) Kind() Kind    { return KindBool }
func (Int) Kind() Kind     { return KindInt }
func (Float) Kind() Kind   { return KindFloat }
func (String) Kind() Kind  { return KindString }
func (Array) Kind() Kind   { return KindArray }
func (*Object) Kind() Kind { return KindObject }

func (Null) isValue()    {}
func (Bool) isValue()    {}
func (Int) isValue()     {}
func (Float) isValue()   {}
func (String) isValue()  {}
func (Array) isValue()   {}
func (*Object) isValue() {}

// KindOf returns the kind of v, treating a nil interface as Null.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// IsNumber reports whether v is an Int or a Float.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	default:
		return false
	}
}

// Equal reports deep equality. Int and Float compare numerically and NaN is
// never equal to anything. Object equality ignores insertion order.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}

	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Float:
			return float64(x) == float64(y)
		}
		return false
	case Float:
		switch y := b.(type) {
		case Int:
			return float64(x) == float64(y)
		case Float:
			return x == y
		}
		return false
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, key := range x.keys {
			other, found := y.Get(key)
			if !found || !Equal(x.fields[key], other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two numbers or two strings. The boolean result is false
// when the pair is unordered: mixed kinds, non-scalar operands or NaN.
func Compare(a, b Value) (int, bool) {
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			return compareInts(int64(x), int64(y)), true
		case Float:
			return compareFloats(float64(x), float64(y))
		}
	case Float:
		switch y := b.(type) {
		case Int:
			return compareFloats(float64(x), float64(y))
		case Float:
			return compareFloats(float64(x), float64(y))
		}
	case String:
		if y, ok := b.(String); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	return 0, false
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloats(a, b float64) (int, bool) {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 0, false
	}
	switch {
	case a < b:
		return -1, true
	case a > b:
		return 1, true
	default:
		return 0, true
	}
}

// Clone returns a deep copy of v. Scalars are returned as is.
func Clone(v Value) Value {
	switch current := v.(type) {
	case Array:
		out := make(Array, len(current))
		for i, item := range current {
			out[i] = Clone(item)
		}
		return out
	case *Object:
		out := NewObject(current.Len())
		for _, key := range current.keys {
			out.Set(key, Clone(current.fields[key]))
		}
		return out
	case nil:
		return Null{}
	default:
		return v
	}
}

// Stringify renders v for string interpolation: strings are returned
// verbatim and every other value is rendered as compact JSON.
func Stringify(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}
	encoded, err := ToJSON(v)
	if err != nil {
		return "<" + KindOf(v).String() + ">"
	}
	return string(encoded)
}
