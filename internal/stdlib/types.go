package stdlib

import (
	"fmt"
	"math"
	"strconv"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func typeFunctions() []Function {
	is := func(name string, kinds ...value.Kind) Function {
		return predicate("type", name, func(v value.Value) bool {
			for _, kind := range kinds {
				if value.KindOf(v) == kind {
					return true
				}
			}
			return false
		})
	}

	return []Function{
		pure("type", "of", 1, func(args []value.Value) (value.Value, error) {
			return value.String(value.KindOf(args[0]).String()), nil
		}),
		pure("type", "as_string", 1, func(args []value.Value) (value.Value, error) {
			return value.String(value.Stringify(args[0])), nil
		}),
		is("is_null", value.KindNull),
		is("is_bool", value.KindBool),
		is("is_integer", value.KindInt),
		is("is_float", value.KindFloat),
		is("is_number", value.KindInt, value.KindFloat),
		is("is_string", value.KindString),
		is("is_array", value.KindArray),
		is("is_record", value.KindObject),
		pure("integer", "parse", 1, func(args []value.Value) (value.Value, error) {
			s, err := asString(args, 0)
			if err != nil {
				return nil, err
			}
			n, err := strconv.ParseInt(s, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an integer", ErrBadArgument, s)
			}
			return value.Int(n), nil
		}),
		pure("float", "parse", 1, func(args []value.Value) (value.Value, error) {
			s, err := asString(args, 0)
			if err != nil {
				return nil, err
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
				return nil, fmt.Errorf("%w: %q is not a float", ErrBadArgument, s)
			}
			return value.Float(f), nil
		}),
	}
}
