package stdlib

import (
	"fmt"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func recordFunctions() []Function {
	return []Function{
		recordFn("len", func(o *value.Object) value.Value { return value.Int(o.Len()) }),
		recordFn("is_empty", func(o *value.Object) value.Value { return value.Bool(o.Len() == 0) }),
		recordFn("keys", func(o *value.Object) value.Value {
			keys := o.Keys()
			out := make(value.Array, len(keys))
			for i, key := range keys {
				out[i] = value.String(key)
			}
			return out
		}),
		recordFn("values", func(o *value.Object) value.Value {
			out := make(value.Array, 0, o.Len())
			o.Range(func(_ string, v value.Value) bool {
				out = append(out, v)
				return true
			})
			return out
		}),
		recordFn("to_array", func(o *value.Object) value.Value {
			out := make(value.Array, 0, o.Len())
			o.Range(func(key string, v value.Value) bool {
				out = append(out, value.Array{value.String(key), v})
				return true
			})
			return out
		}),
		pure("record", "from_array", 1, fromArray),
		pure("record", "contains", 2, func(args []value.Value) (value.Value, error) {
			o, key, err := recordAndKey(args)
			if err != nil {
				return nil, err
			}
			return value.Bool(o.Has(key)), nil
		}),
		pure("record", "remove", 2, func(args []value.Value) (value.Value, error) {
			o, key, err := recordAndKey(args)
			if err != nil {
				return nil, err
			}
			return o.Without(key), nil
		}),
		pure("record", "select", 2, func(args []value.Value) (value.Value, error) {
			o, err := asObject(args, 0)
			if err != nil {
				return nil, err
			}
			keys, err := asStrings(args, 1)
			if err != nil {
				return nil, err
			}
			out := value.NewObject(len(keys))
			for _, key := range keys {
				if v, ok := o.Get(key); ok {
					out.Set(key, v)
				}
			}
			return out, nil
		}),
		pure("record", "merge", 2, func(args []value.Value) (value.Value, error) {
			target, err := asObject(args, 0)
			if err != nil {
				return nil, err
			}
			source, err := asObject(args, 1)
			if err != nil {
				return nil, err
			}
			return value.Merge(target, source)
		}),
		pure("record", "rename", 3, func(args []value.Value) (value.Value, error) {
			o, from, err := recordAndKey(args)
			if err != nil {
				return nil, err
			}
			to, err := asString(args, 2)
			if err != nil {
				return nil, err
			}
			v, ok := o.Get(from)
			if !ok || from == to {
				return o, nil
			}
			return o.Without(from).With(to, v), nil
		}),
	}
}

func recordFn(name string, fn func(o *value.Object) value.Value) Function {
	return pure("record", name, 1, func(args []value.Value) (value.Value, error) {
		o, err := asObject(args, 0)
		if err != nil {
			return nil, err
		}
		return fn(o), nil
	})
}

func recordAndKey(args []value.Value) (*value.Object, string, error) {
	o, err := asObject(args, 0)
	if err != nil {
		return nil, "", err
	}
	key, err := asString(args, 1)
	if err != nil {
		return nil, "", err
	}
	return o, key, nil
}

// fromArray builds a record from [key, value] pairs; later pairs win.
func fromArray(args []value.Value) (value.Value, error) {
	a, err := asArray(args, 0)
	if err != nil {
		return nil, err
	}
	out := value.NewObject(len(a))
	for i, item := range a {
		pair, ok := item.(value.Array)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: element %d is not a [key, value] pair", ErrBadArgument, i)
		}
		key, ok := pair[0].(value.String)
		if !ok {
			return nil, fmt.Errorf("%w: element %d has a %s key", ErrBadArgument, i, value.KindOf(pair[0]))
		}
		out.Set(string(key), pair[1])
	}
	return out, nil
}
