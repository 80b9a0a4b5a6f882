// Package yamlvalue decodes YAML into value.Value, keeping mapping order.
package yamlvalue

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

var ErrUnsupportedNode = errors.New("unsupported YAML node")

// Value wraps a value.Value so it can be a field of a YAML-decoded struct.
type Value struct {
	v value.Value
}

func (v *Value) UnmarshalYAML(node ast.Node) error {
	decoded, err := FromNode(node)
	if err != nil {
		return err
	}
	v.v = decoded
	return nil
}

// Get returns the wrapped value, null when the field was absent.
func (v *Value) Get() value.Value {
	if v == nil || v.v == nil {
		return value.Null{}
	}
	return v.v
}

// FromNode converts a parsed YAML node.
func FromNode(node ast.Node) (value.Value, error) {
	switch n := node.(type) {
	case nil:
		return value.Null{}, nil
	case *ast.NullNode:
		return value.Null{}, nil
	case *ast.BoolNode:
		return value.Bool(n.Value), nil
	case *ast.IntegerNode:
		return value.FromGo(n.Value)
	case *ast.FloatNode:
		return value.Float(n.Value), nil
	case *ast.InfinityNode:
		return value.Float(n.Value), nil
	case *ast.NanNode:
		return value.Float(math.NaN()), nil
	case *ast.StringNode:
		return value.String(n.Value), nil
	case *ast.LiteralNode:
		return value.String(n.Value.Value), nil
	case *ast.TagNode:
		return FromNode(n.Value)
	case *ast.AnchorNode:
		return FromNode(n.Value)
	case *ast.DocumentNode:
		return FromNode(n.Body)
	case *ast.SequenceNode:
		out := make(value.Array, 0, len(n.Values))
		for i, item := range n.Values {
			v, err := FromNode(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	case *ast.MappingNode:
		out := value.NewObject(len(n.Values))
		for _, pair := range n.Values {
			if err := setPair(out, pair); err != nil {
				return nil, err
			}
		}
		return out, nil
	case *ast.MappingValueNode:
		out := value.NewObject(1)
		if err := setPair(out, n); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s at %v", ErrUnsupportedNode, node.Type(), node.GetToken().Position)
	}
}

func setPair(out *value.Object, pair *ast.MappingValueNode) error {
	key, err := keyOf(pair.Key)
	if err != nil {
		return err
	}
	v, err := FromNode(pair.Value)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	out.Set(key, v)
	return nil
}

func keyOf(node ast.MapKeyNode) (string, error) {
	switch k := node.(type) {
	case *ast.StringNode:
		return k.Value, nil
	case ast.ScalarNode:
		return fmt.Sprint(k.GetValue()), nil
	default:
		return "", fmt.Errorf("%w: mapping key %s", ErrUnsupportedNode, node.Type())
	}
}

// Unmarshal decodes a single YAML document.
func Unmarshal(data []byte) (value.Value, error) {
	var v Value
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v.Get(), nil
}

// Decoder reads a stream of YAML documents separated by "---".
type Decoder struct {
	dec *yaml.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: yaml.NewDecoder(r)}
}

// Decode returns the next document, or io.EOF at the end of the stream.
func (d *Decoder) Decode() (value.Value, error) {
	var v Value
	if err := d.dec.Decode(&v); err != nil {
		return nil, err
	}
	return v.Get(), nil
}
