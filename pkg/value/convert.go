package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrUnsupportedType = errors.New("unsupported Go type")

// FromGo converts plain Go data (as produced by encoding/json or YAML
// decoders) into a Value. Map keys are sorted since Go maps carry no order.
func FromGo(in any) (Value, error) {
	switch current := in.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return current, nil
	case bool:
		return Bool(current), nil
	case int:
		return Int(current), nil
	case int8:
		return Int(current), nil
	case int16:
		return Int(current), nil
	case int32:
		return Int(current), nil
	case int64:
		return Int(current), nil
	case uint:
		return fromUint(uint64(current))
	case uint8:
		return Int(current), nil
	case uint16:
		return Int(current), nil
	case uint32:
		return Int(current), nil
	case uint64:
		return fromUint(current)
	case float32:
		return Float(current), nil
	case float64:
		return Float(current), nil
	case string:
		return String(current), nil
	case json.Number:
		return parseNumber(current.String())
	case []any:
		out := make(Array, 0, len(current))
		for i, item := range current {
			v, err := FromGo(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	case []string:
		out := make(Array, 0, len(current))
		for _, item := range current {
			out = append(out, String(item))
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(current))
		for key := range current {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		out := NewObject(len(keys))
		for _, key := range keys {
			v, err := FromGo(current[key])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out.Set(key, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, in)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedType, u)
	}
	return Int(int64(u)), nil
}

// ToGo converts v into plain Go data: nil, bool, int64, float64, string,
// []any and map[string]any.
func ToGo(v Value) any {
	switch current := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(current)
	case Int:
		return int64(current)
	case Float:
		return float64(current)
	case String:
		return string(current)
	case Array:
		out := make([]any, len(current))
		for i, item := range current {
			out[i] = ToGo(item)
		}
		return out
	case *Object:
		out := make(map[string]any, current.Len())
		current.Range(func(key string, item Value) bool {
			out[key] = ToGo(item)
			return true
		})
		return out
	default:
		return nil
	}
}
