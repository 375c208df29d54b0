package value

import (
	"math"
	"strings"

	"github.com/zurustar/tinyscript/pkg/diag"
)

// Op is a binary or unary operator symbol as written in source.
type Op string

const (
	Add Op = "+"
	Sub Op = "-"
	Mul Op = "*"
	Div Op = "/"
	Mod Op = "%"
	Exp Op = "^"

	Lt Op = "<"
	Gt Op = ">"
	Le Op = "<="
	Ge Op = ">="
	Eq Op = "=="
	Ne Op = "~="

	Not Op = "~"
)

// maxRepeat bounds the length of a string produced by repetition.
const maxRepeat = 1 << 28

// Binary applies op to l and r following the coercion table.
//
// The returned error is a *diag.Error of kind TypeError or DivisionByZero
// with no position; callers attach the position of the operator.
func Binary(op Op, l, r Value) (Value, error) {
	switch {
	case l.kind == NumberKind && r.kind == NumberKind:
		return numeric(op, l.num, r.num)

	case l.kind == StringKind || r.kind == StringKind:
		return stringOp(op, l, r)

	case op == Eq:
		return Bool(l.Equal(r)), nil
	case op == Ne:
		return Bool(!l.Equal(r)), nil

	default:
		// At least one Bool, the other Number or Bool.
		switch op {
		case Add, Sub, Mul, Exp:
			return numeric(op, toNumber(l), toNumber(r))
		}
		return Value{}, unsupported(op, l, r)
	}
}

// Unary applies a prefix operator.
func Unary(op Op, v Value) (Value, error) {
	switch op {
	case Sub:
		if v.kind == NumberKind {
			return Number(-v.num), nil
		}
	case Add:
		if v.kind == NumberKind {
			return v, nil
		}
	case Not:
		if v.kind == BoolKind {
			return Bool(!v.b), nil
		}
	default:
		return Value{}, diag.NewTypeError(0, 0, "unknown unary operator %s", op)
	}
	return Value{}, diag.NewTypeError(0, 0, "unsupported operand type for unary %s: %s", op, v.kind)
}

func numeric(op Op, a, b float64) (Value, error) {
	switch op {
	case Add:
		return Number(a + b), nil
	case Sub:
		return Number(a - b), nil
	case Mul:
		return Number(a * b), nil
	case Div:
		if b == 0 {
			return Value{}, diag.New(diag.DivisionByZero, 0, 0, "division by zero")
		}
		return Number(a / b), nil
	case Mod:
		if b == 0 {
			return Value{}, diag.New(diag.DivisionByZero, 0, 0, "modulo by zero")
		}
		return Number(FlooredMod(a, b)), nil
	case Exp:
		return Number(math.Pow(a, b)), nil
	case Lt:
		return Bool(a < b), nil
	case Gt:
		return Bool(a > b), nil
	case Le:
		return Bool(a <= b), nil
	case Ge:
		return Bool(a >= b), nil
	case Eq:
		return Bool(a == b), nil
	case Ne:
		return Bool(a != b), nil
	}
	return Value{}, diag.NewTypeError(0, 0, "unknown operator %s", op)
}

func stringOp(op Op, l, r Value) (Value, error) {
	switch op {
	case Add:
		return String(l.String() + r.String()), nil
	case Eq:
		return Bool(l.kind == StringKind && r.kind == StringKind && l.str == r.str), nil
	case Ne:
		return Bool(!(l.kind == StringKind && r.kind == StringKind && l.str == r.str)), nil
	case Mul:
		s, n, ok := repetition(l, r)
		if !ok {
			break
		}
		if n <= 0 || s == "" {
			return String(""), nil
		}
		if n > maxRepeat || float64(len(s))*n > maxRepeat {
			return Value{}, diag.NewTypeError(0, 0, "string repetition too large: %s", FormatNumber(n))
		}
		return String(strings.Repeat(s, int(n))), nil
	}
	return Value{}, unsupported(op, l, r)
}

// repetition matches String * integral Number in either order.
func repetition(l, r Value) (string, float64, bool) {
	switch {
	case l.kind == StringKind && r.kind == NumberKind && isIntegral(r.num):
		return l.str, r.num, true
	case r.kind == StringKind && l.kind == NumberKind && isIntegral(l.num):
		return r.str, l.num, true
	}
	return "", 0, false
}

func toNumber(v Value) float64 {
	if v.kind == BoolKind {
		if v.b {
			return 1
		}
		return 0
	}
	return v.num
}

// FlooredMod returns a mod b with the sign of b.
func FlooredMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func unsupported(op Op, l, r Value) *diag.Error {
	return diag.NewTypeError(0, 0, "unsupported operand types for %s: %s and %s", op, l.kind, r.kind)
}
