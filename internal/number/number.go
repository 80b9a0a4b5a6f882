// Package number implements the arithmetic and bitwise operators of the
// script language over value.Value operands.
package number

import (
	"errors"
	"fmt"
	"math"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

var (
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrDivisionByZero = errors.New("division by zero")
	ErrOverflow       = errors.New("integer overflow")
)

// ToFloat64 converts Int and Float values to float64.
func ToFloat64(v value.Value) (float64, bool) {
	switch current := v.(type) {
	case value.Int:
		return float64(current), true
	case value.Float:
		return float64(current), true
	default:
		return 0, false
	}
}

// ToStrictInt accepts only Int values.
func ToStrictInt(v value.Value) (int64, error) {
	current, ok := v.(value.Int)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrTypeMismatch, value.KindOf(v))
	}
	return int64(current), nil
}

func mismatch(op string, a, b value.Value) error {
	return fmt.Errorf("%w: cannot apply %s to %s and %s", ErrTypeMismatch, op, value.KindOf(a), value.KindOf(b))
}

// Add sums numbers, concatenates strings and arrays and merges objects
// with the right operand winning on shared keys.
func Add(a, b value.Value) (value.Value, error) {
	switch left := a.(type) {
	case value.Int:
		if right, ok := b.(value.Int); ok {
			if (right > 0 && left > math.MaxInt64-right) || (right < 0 && left < math.MinInt64-right) {
				return nil, fmt.Errorf("%w: %d + %d", ErrOverflow, left, right)
			}
			return left + right, nil
		}
	case value.String:
		if right, ok := b.(value.String); ok {
			return left + right, nil
		}
		return nil, mismatch("+", a, b)
	case value.Array:
		if right, ok := b.(value.Array); ok {
			out := make(value.Array, 0, len(left)+len(right))
			out = append(out, left...)
			return append(out, right...), nil
		}
		return nil, mismatch("+", a, b)
	case *value.Object:
		if right, ok := b.(*value.Object); ok {
			out := left.Copy()
			right.Range(func(key string, v value.Value) bool {
				out.Set(key, v)
				return true
			})
			return out, nil
		}
		return nil, mismatch("+", a, b)
	}
	return floatOp("+", a, b, func(x, y float64) float64 { return x + y })
}

func Sub(a, b value.Value) (value.Value, error) {
	if left, right, ok := ints(a, b); ok {
		if (right < 0 && left > math.MaxInt64+right) || (right > 0 && left < math.MinInt64+right) {
			return nil, fmt.Errorf("%w: %d - %d", ErrOverflow, left, right)
		}
		return value.Int(left - right), nil
	}
	return floatOp("-", a, b, func(x, y float64) float64 { return x - y })
}

func Mul(a, b value.Value) (value.Value, error) {
	if left, right, ok := ints(a, b); ok {
		if left == 0 || right == 0 {
			return value.Int(0), nil
		}
		product := left * right
		if product/right != left || (left == -1 && right == math.MinInt64) || (right == -1 && left == math.MinInt64) {
			return nil, fmt.Errorf("%w: %d * %d", ErrOverflow, left, right)
		}
		return value.Int(product), nil
	}
	return floatOp("*", a, b, func(x, y float64) float64 { return x * y })
}

// Div divides. Two Ints give an Int when the division is exact and a Float
// otherwise.
func Div(a, b value.Value) (value.Value, error) {
	if left, right, ok := ints(a, b); ok {
		if right == 0 {
			return nil, fmt.Errorf("%w: %d / 0", ErrDivisionByZero, left)
		}
		if left == math.MinInt64 && right == -1 {
			return nil, fmt.Errorf("%w: %d / %d", ErrOverflow, left, right)
		}
		if left%right == 0 {
			return value.Int(left / right), nil
		}
		return value.Float(float64(left) / float64(right)), nil
	}

	x, xok := ToFloat64(a)
	y, yok := ToFloat64(b)
	if !xok || !yok {
		return nil, mismatch("/", a, b)
	}
	if y == 0 {
		return nil, fmt.Errorf("%w: %v / 0", ErrDivisionByZero, x)
	}
	return value.Float(x / y), nil
}

func Mod(a, b value.Value) (value.Value, error) {
	left, right, ok := ints(a, b)
	if !ok {
		return nil, mismatch("%", a, b)
	}
	if right == 0 {
		return nil, fmt.Errorf("%w: %d %% 0", ErrDivisionByZero, left)
	}
	return value.Int(left % right), nil
}

func Neg(v value.Value) (value.Value, error) {
	switch current := v.(type) {
	case value.Int:
		if current == math.MinInt64 {
			return nil, fmt.Errorf("%w: -(%d)", ErrOverflow, current)
		}
		return -current, nil
	case value.Float:
		return -current, nil
	default:
		return nil, fmt.Errorf("%w: cannot negate %s", ErrTypeMismatch, value.KindOf(v))
	}
}

// Plus is unary plus: the identity on numbers.
func Plus(v value.Value) (value.Value, error) {
	if !value.IsNumber(v) {
		return nil, fmt.Errorf("%w: unary + on %s", ErrTypeMismatch, value.KindOf(v))
	}
	return v, nil
}

func BitAnd(a, b value.Value) (value.Value, error) {
	return bitOp("&", a, b, func(x, y int64) int64 { return x & y })
}

func BitOr(a, b value.Value) (value.Value, error) {
	return bitOp("|", a, b, func(x, y int64) int64 { return x | y })
}

func BitXor(a, b value.Value) (value.Value, error) {
	return bitOp("^", a, b, func(x, y int64) int64 { return x ^ y })
}

func BitNot(v value.Value) (value.Value, error) {
	current, err := ToStrictInt(v)
	if err != nil {
		return nil, err
	}
	return value.Int(^current), nil
}

func Shl(a, b value.Value) (value.Value, error) {
	return shift("<<", a, b, func(x int64, n uint) int64 { return x << n })
}

// Shr is an arithmetic shift, keeping the sign.
func Shr(a, b value.Value) (value.Value, error) {
	return shift(">>", a, b, func(x int64, n uint) int64 { return x >> n })
}

// Ushr is a logical shift, filling with zeros.
func Ushr(a, b value.Value) (value.Value, error) {
	return shift(">>>", a, b, func(x int64, n uint) int64 { return int64(uint64(x) >> n) })
}

func ints(a, b value.Value) (int64, int64, bool) {
	left, lok := a.(value.Int)
	right, rok := b.(value.Int)
	return int64(left), int64(right), lok && rok
}

func floatOp(op string, a, b value.Value, fn func(x, y float64) float64) (value.Value, error) {
	x, xok := ToFloat64(a)
	y, yok := ToFloat64(b)
	if !xok || !yok {
		return nil, mismatch(op, a, b)
	}
	return value.Float(fn(x, y)), nil
}

func bitOp(op string, a, b value.Value, fn func(x, y int64) int64) (value.Value, error) {
	left, right, ok := ints(a, b)
	if !ok {
		return nil, mismatch(op, a, b)
	}
	return value.Int(fn(left, right)), nil
}

func shift(op string, a, b value.Value, fn func(x int64, n uint) int64) (value.Value, error) {
	left, right, ok := ints(a, b)
	if !ok {
		return nil, mismatch(op, a, b)
	}
	if right < 0 || right > 63 {
		return nil, fmt.Errorf("%w: shift count %d out of range", ErrOverflow, right)
	}
	return value.Int(fn(left, uint(right))), nil
}
