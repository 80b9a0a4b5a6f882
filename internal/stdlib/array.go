package stdlib

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func arrayFunctions() []Function {
	return []Function{
		arrayFn("len", func(a value.Array) (value.Value, error) { return value.Int(len(a)), nil }),
		arrayFn("is_empty", func(a value.Array) (value.Value, error) { return value.Bool(len(a) == 0), nil }),
		arrayFn("reverse", func(a value.Array) (value.Value, error) {
			out := make(value.Array, len(a))
			for i, item := range a {
				out[len(a)-1-i] = item
			}
			return out, nil
		}),
		arrayFn("flatten", func(a value.Array) (value.Value, error) { return flatten(nil, a), nil }),
		arrayFn("coalesce", func(a value.Array) (value.Value, error) {
			out := make(value.Array, 0, len(a))
			for _, item := range a {
				if _, isNull := item.(value.Null); !isNull && item != nil {
					out = append(out, item)
				}
			}
			return out, nil
		}),
		arrayFn("sort", sortArray),
		arrayFn("unzip", unzip),
		pure("array", "contains", 2, func(args []value.Value) (value.Value, error) {
			a, err := asArray(args, 0)
			if err != nil {
				return nil, err
			}
			for _, item := range a {
				if value.Equal(item, args[1]) {
					return value.Bool(true), nil
				}
			}
			return value.Bool(false), nil
		}),
		pure("array", "push", 2, func(args []value.Value) (value.Value, error) {
			a, err := asArray(args, 0)
			if err != nil {
				return nil, err
			}
			out := make(value.Array, len(a), len(a)+1)
			copy(out, a)
			return append(out, args[1]), nil
		}),
		pure("array", "concat", 2, func(args []value.Value) (value.Value, error) {
			a, err := asArray(args, 0)
			if err != nil {
				return nil, err
			}
			b, err := asArray(args, 1)
			if err != nil {
				return nil, err
			}
			out := make(value.Array, 0, len(a)+len(b))
			out = append(out, a...)
			return append(out, b...), nil
		}),
		pure("array", "join", 2, func(args []value.Value) (value.Value, error) {
			parts, err := asStrings(args, 0)
			if err != nil {
				return nil, err
			}
			sep, err := asString(args, 1)
			if err != nil {
				return nil, err
			}
			return value.String(strings.Join(parts, sep)), nil
		}),
		pure("array", "zip", 2, func(args []value.Value) (value.Value, error) {
			a, err := asArray(args, 0)
			if err != nil {
				return nil, err
			}
			b, err := asArray(args, 1)
			if err != nil {
				return nil, err
			}
			if len(a) != len(b) {
				return nil, fmt.Errorf("%w: cannot zip arrays of length %d and %d", ErrBadArgument, len(a), len(b))
			}
			out := make(value.Array, len(a))
			for i := range a {
				out[i] = value.Array{a[i], b[i]}
			}
			return out, nil
		}),
	}
}

func arrayFn(name string, fn func(a value.Array) (value.Value, error)) Function {
	return pure("array", name, 1, func(args []value.Value) (value.Value, error) {
		a, err := asArray(args, 0)
		if err != nil {
			return nil, err
		}
		return fn(a)
	})
}

func flatten(out, a value.Array) value.Array {
	if out == nil {
		out = make(value.Array, 0, len(a))
	}
	for _, item := range a {
		if nested, ok := item.(value.Array); ok {
			out = flatten(out, nested)
			continue
		}
		out = append(out, item)
	}
	return out
}

// sortArray sorts numbers or strings ascending. Mixed or unordered elements
// are rejected.
func sortArray(a value.Array) (value.Value, error) {
	out := make(value.Array, len(a))
	copy(out, a)

	var unordered error
	sort.SliceStable(out, func(i, j int) bool {
		c, ok := value.Compare(out[i], out[j])
		if !ok {
			if unordered == nil {
				unordered = fmt.Errorf("%w: cannot order %s and %s", ErrBadArgument, value.KindOf(out[i]), value.KindOf(out[j]))
			}
			return false
		}
		return c < 0
	})
	if unordered != nil {
		return nil, unordered
	}
	return out, nil
}

// unzip turns an array of pairs into a pair of arrays.
func unzip(a value.Array) (value.Value, error) {
	left := make(value.Array, len(a))
	right := make(value.Array, len(a))
	for i, item := range a {
		pair, ok := item.(value.Array)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: element %d is not a pair", ErrBadArgument, i)
		}
		left[i], right[i] = pair[0], pair[1]
	}
	return value.Array{left, right}, nil
}
