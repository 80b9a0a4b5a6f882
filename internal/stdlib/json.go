package stdlib

import (
	"encoding/base64"
	"fmt"

	"github.com/theory/jsonpath"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

var jsonPaths = newBoundedCache(defaultCacheSize, jsonpath.Parse)

func jsonFunctions() []Function {
	return []Function{
		pure("json", "encode", 1, func(args []value.Value) (value.Value, error) {
			encoded, err := value.ToJSON(args[0])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadArgument, err)
			}
			return value.String(encoded), nil
		}),
		pure("json", "encode_pretty", 1, func(args []value.Value) (value.Value, error) {
			encoded, err := value.ToJSONIndent(args[0], "  ")
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadArgument, err)
			}
			return value.String(encoded), nil
		}),
		pure("json", "decode", 1, func(args []value.Value) (value.Value, error) {
			s, err := asString(args, 0)
			if err != nil {
				return nil, err
			}
			decoded, err := value.FromJSON([]byte(s))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadArgument, err)
			}
			return decoded, nil
		}),
		pure("json", "path", 2, selectPath),
		pure("base64", "encode", 1, func(args []value.Value) (value.Value, error) {
			s, err := asString(args, 0)
			if err != nil {
				return nil, err
			}
			return value.String(base64.StdEncoding.EncodeToString([]byte(s))), nil
		}),
		pure("base64", "decode", 1, func(args []value.Value) (value.Value, error) {
			s, err := asString(args, 0)
			if err != nil {
				return nil, err
			}
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadArgument, err)
			}
			return value.String(decoded), nil
		}),
	}
}

// selectPath evaluates a JSONPath query and returns the node list.
func selectPath(args []value.Value) (value.Value, error) {
	expr, err := asString(args, 1)
	if err != nil {
		return nil, err
	}
	path, err := jsonPaths.Get(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSONPath %q: %v", ErrBadArgument, expr, err)
	}

	nodes := path.Select(value.ToGo(args[0]))
	out := make(value.Array, 0, len(nodes))
	for _, node := range nodes {
		v, err := value.FromGo(node)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
