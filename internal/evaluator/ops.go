package evaluator

import (
	"errors"
	"fmt"

	"github.com/mfelsche/tremor-runtime/internal/ast"
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/internal/number"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

var (
	errNotBool  = errors.New("not a boolean")
	errNotKey   = errors.New("not a string key")
	errBadPatch = errors.New("patch failed")
)

var arithmetic = map[ast.BinOp]func(a, b value.Value) (value.Value, error){
	ast.OpAdd:    number.Add,
	ast.OpSub:    number.Sub,
	ast.OpMul:    number.Mul,
	ast.OpDiv:    number.Div,
	ast.OpMod:    number.Mod,
	ast.OpBitAnd: number.BitAnd,
	ast.OpBitOr:  number.BitOr,
	ast.OpBitXor: number.BitXor,
	ast.OpShl:    number.Shl,
	ast.OpShr:    number.Shr,
	ast.OpUshr:   number.Ushr,
}

// binary applies a non short-circuit operator. and/or/xor only reach here
// with both operands evaluated.
func binary(op ast.BinOp, left, right value.Value) (value.Value, error) {
	if fn, ok := arithmetic[op]; ok {
		return fn(left, right)
	}

	switch op {
	case ast.OpEq:
		return value.Bool(value.Equal(left, right)), nil
	case ast.OpNotEq:
		return value.Bool(!value.Equal(left, right)), nil
	case ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		return value.Bool(ordered(op, left, right)), nil
	case ast.OpAnd, ast.OpOr, ast.OpXor:
		l, err := truthy(left)
		if err != nil {
			return nil, err
		}
		r, err := truthy(right)
		if err != nil {
			return nil, err
		}
		switch op {
		case ast.OpAnd:
			return value.Bool(l && r), nil
		case ast.OpOr:
			return value.Bool(l || r), nil
		default:
			return value.Bool(l != r), nil
		}
	default:
		return nil, fmt.Errorf("unsupported operator %s", op)
	}
}

// ordered is false for unordered operands, NaN included.
func ordered(op ast.BinOp, left, right value.Value) bool {
	c, ok := value.Compare(left, right)
	if !ok {
		return false
	}
	switch op {
	case ast.OpLt:
		return c < 0
	case ast.OpLte:
		return c <= 0
	case ast.OpGt:
		return c > 0
	default:
		return c >= 0
	}
}

func compare(op ast.CmpOp, left, right value.Value) bool {
	switch op {
	case ast.CmpEq:
		return value.Equal(left, right)
	case ast.CmpNotEq:
		return !value.Equal(left, right)
	case ast.CmpLt:
		return ordered(ast.OpLt, left, right)
	case ast.CmpLte:
		return ordered(ast.OpLte, left, right)
	case ast.CmpGt:
		return ordered(ast.OpGt, left, right)
	default:
		return ordered(ast.OpGte, left, right)
	}
}

func unary(op ast.UnaryOp, operand value.Value) (value.Value, error) {
	switch op {
	case ast.OpNot, ast.OpBang:
		b, err := truthy(operand)
		if err != nil {
			return nil, err
		}
		return value.Bool(!b), nil
	case ast.OpMinus:
		return number.Neg(operand)
	default:
		return number.Plus(operand)
	}
}

// truthy accepts only booleans.
func truthy(v value.Value) (bool, error) {
	b, ok := v.(value.Bool)
	if !ok {
		return false, fmt.Errorf("%w: expected a boolean, got %s", errNotBool, value.KindOf(v))
	}
	return bool(b), nil
}

func key(v value.Value) (string, error) {
	s, ok := v.(value.String)
	if !ok {
		return "", fmt.Errorf("%w: keys must be strings, got %s", errNotKey, value.KindOf(v))
	}
	return string(s), nil
}

// codeOf classifies an operation error.
func codeOf(err error) diagnostics.Code {
	switch {
	case errors.Is(err, number.ErrDivisionByZero):
		return diagnostics.CodeDivisionByZero
	case errors.Is(err, number.ErrOverflow):
		return diagnostics.CodeOverflow
	case errors.Is(err, number.ErrTypeMismatch), errors.Is(err, errNotBool), errors.Is(err, errNotKey):
		return diagnostics.CodeTypeMismatch
	case errors.Is(err, value.ErrNotMergeable):
		return diagnostics.CodeMergeFailed
	case errors.Is(err, errBadPatch):
		return diagnostics.CodePatchFailed
	default:
		return diagnostics.CodeFunctionFailed
	}
}
