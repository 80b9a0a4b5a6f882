package stdlib

import (
	"fmt"
	"math"

	"github.com/mfelsche/tremor-runtime/internal/number"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func mathFunctions() []Function {
	return []Function{
		rounding("floor", math.Floor),
		rounding("ceil", math.Ceil),
		rounding("round", math.Round),
		rounding("trunc", math.Trunc),
		pure("math", "abs", 1, func(args []value.Value) (value.Value, error) {
			switch n := args[0].(type) {
			case value.Int:
				if n < 0 {
					return number.Neg(n)
				}
				return n, nil
			case value.Float:
				return value.Float(math.Abs(float64(n))), nil
			default:
				return nil, badArg(0, "a number", args[0])
			}
		}),
		extremum("min", -1),
		extremum("max", 1),
		pure("math", "pow", 2, pow),
		pure("math", "sqrt", 1, func(args []value.Value) (value.Value, error) {
			x, ok := number.ToFloat64(args[0])
			if !ok {
				return nil, badArg(0, "a number", args[0])
			}
			if x < 0 {
				return nil, fmt.Errorf("%w: square root of negative number %v", ErrBadArgument, x)
			}
			return value.Float(math.Sqrt(x)), nil
		}),
	}
}

// rounding functions return an Int; Int inputs pass through.
func rounding(name string, fn func(float64) float64) Function {
	return pure("math", name, 1, func(args []value.Value) (value.Value, error) {
		switch n := args[0].(type) {
		case value.Int:
			return n, nil
		case value.Float:
			return floatToInt(fn(float64(n)))
		default:
			return nil, badArg(0, "a number", args[0])
		}
	})
}

func floatToInt(f float64) (value.Value, error) {
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("%w: %v does not fit an integer", number.ErrOverflow, f)
	}
	return value.Int(int64(f)), nil
}

// extremum picks the smaller (sign -1) or larger (sign 1) of two numbers,
// keeping the chosen operand's kind.
func extremum(name string, sign int) Function {
	return pure("math", name, 2, func(args []value.Value) (value.Value, error) {
		for i := range args {
			if !value.IsNumber(args[i]) {
				return nil, badArg(i, "a number", args[i])
			}
		}
		c, ok := value.Compare(args[0], args[1])
		if !ok {
			return value.Float(math.NaN()), nil
		}
		if c*sign >= 0 {
			return args[0], nil
		}
		return args[1], nil
	})
}

// pow stays integral for Int operands with a non-negative exponent.
func pow(args []value.Value) (value.Value, error) {
	base, exp := args[0], args[1]
	if b, ok := base.(value.Int); ok {
		if e, ok := exp.(value.Int); ok && e >= 0 {
			return intPow(b, e)
		}
	}
	x, ok := number.ToFloat64(base)
	if !ok {
		return nil, badArg(0, "a number", base)
	}
	y, ok := number.ToFloat64(exp)
	if !ok {
		return nil, badArg(1, "a number", exp)
	}
	return value.Float(math.Pow(x, y)), nil
}

// intPow squares and multiplies, reporting overflow.
func intPow(b, e value.Int) (value.Value, error) {
	result, square := value.Value(value.Int(1)), value.Value(b)
	for e > 0 {
		var err error
		if e&1 == 1 {
			if result, err = number.Mul(result, square); err != nil {
				return nil, err
			}
		}
		e >>= 1
		if e > 0 {
			if square, err = number.Mul(square, square); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}
