// Package value implements the tinyscript runtime value model: a tagged
// union of Number, String and Bool, the operator coercion table shared by
// both backends, and the rendering used by print.
package value

import (
	"math"
	"strconv"
)

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	NumberKind Kind = iota
	StringKind
	BoolKind
)

func (k Kind) String() string {
	switch k {
	case NumberKind:
		return "Number"
	case StringKind:
		return "String"
	case BoolKind:
		return "Bool"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a Number, a String or a Bool. The zero Value is Number 0.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

// Number returns a Number value.
func Number(f float64) Value { return Value{kind: NumberKind, num: f} }

// String returns a String value. s is kept raw; escapes are decoded by print.
func String(s string) Value { return Value{kind: StringKind, str: s} }

// Bool returns a Bool value.
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }

// Zero is the Number 0 produced by statements.
var Zero = Number(0)

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNumber() bool { return v.kind == NumberKind }
func (v Value) IsString() bool { return v.kind == StringKind }
func (v Value) IsBool() bool   { return v.kind == BoolKind }

// AsNumber returns the payload of a Number. It is 0 for other kinds.
func (v Value) AsNumber() float64 { return v.num }

// AsString returns the payload of a String. It is "" for other kinds.
func (v Value) AsString() string { return v.str }

// AsBool returns the payload of a Bool. It is false for other kinds.
func (v Value) AsBool() bool { return v.b }

// String renders v the way print does before escape decoding: numbers in
// shortest decimal form without a fractional part when integral, strings as
// themselves, booleans as true/false.
func (v Value) String() string {
	switch v.kind {
	case StringKind:
		return v.str
	case BoolKind:
		return strconv.FormatBool(v.b)
	default:
		return FormatNumber(v.num)
	}
}

// Literal renders v as it appears in an instruction listing: strings are
// quoted, everything else renders as String does.
func (v Value) Literal() string {
	if v.kind == StringKind {
		return strconv.Quote(v.str)
	}
	return v.String()
}

// Equal reports whether v and o have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case StringKind:
		return v.str == o.str
	case BoolKind:
		return v.b == o.b
	default:
		return v.num == o.num
	}
}

// FormatNumber renders f in decimal without exponent. 3 renders as "3",
// 2.5 as "2.5".
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Truthy reports whether v counts as true in a condition: a Bool by value,
// a Number when non-zero, a String when non-empty.
func Truthy(v Value) bool {
	switch v.kind {
	case BoolKind:
		return v.b
	case StringKind:
		return v.str != ""
	default:
		return v.num != 0
	}
}

// isIntegral reports whether f has no fractional part.
func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}
