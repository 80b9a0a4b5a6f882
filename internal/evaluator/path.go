package evaluator

import (
	"github.com/mfelsche/tremor-runtime/internal/ast"
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func (r *run) root(p *ast.Path) (value.Value, error) {
	switch p.Root {
	case ast.RootEvent:
		return r.event, nil
	case ast.RootMeta:
		return r.meta, nil
	case ast.RootLocal:
		v := r.locals[p.Slot]
		if v == nil {
			return nil, r.fail(p, diagnostics.CodeUnsetVariable, "variable %s is not set", p.Name)
		}
		return v, nil
	case ast.RootConst:
		return r.prog.consts[p.Slot], nil
	default:
		return r.expr(p.Base)
	}
}

func (r *run) read(p *ast.Path) (value.Value, error) {
	cur, err := r.root(p)
	if err != nil {
		return nil, err
	}
	for _, seg := range p.Segments {
		below, miss, err := r.step(seg, cur)
		if err != nil {
			return nil, err
		}
		if miss != nil {
			return nil, miss
		}
		cur = below
	}
	return cur, nil
}

// present walks the path like read but reports absence instead of failing.
func (r *run) present(p *ast.Path) (bool, error) {
	if p.Root == ast.RootLocal && r.locals[p.Slot] == nil {
		return false, nil
	}
	cur, err := r.root(p)
	if err != nil {
		return false, err
	}
	for _, seg := range p.Segments {
		below, miss, err := r.step(seg, cur)
		if err != nil {
			return false, err
		}
		if miss != nil {
			return false, nil
		}
		cur = below
	}
	return true, nil
}

// step descends one segment. miss explains why nothing is there; err is a
// failure evaluating the segment's own expressions.
func (r *run) step(seg *ast.Segment, cur value.Value) (value.Value, error, error) {
	switch seg.Kind {
	case ast.SegmentField:
		below, miss := r.field(seg, cur, seg.Field)
		return below, miss, nil
	case ast.SegmentIndex:
		idx, err := r.expr(seg.Index)
		if err != nil {
			return nil, nil, err
		}
		switch i := idx.(type) {
		case value.String:
			below, miss := r.field(seg, cur, string(i))
			return below, miss, nil
		case value.Int:
			arr, ok := cur.(value.Array)
			if !ok {
				return nil, r.fail(seg, diagnostics.CodeTypeMismatch, "cannot index %s with an integer", value.KindOf(cur)), nil
			}
			if i < 0 || int(i) >= len(arr) {
				return nil, r.fail(seg, diagnostics.CodeIndexOutOfRange, "index %d out of range for length %d", i, len(arr)), nil
			}
			return arr[i], nil, nil
		default:
			return nil, nil, r.fail(seg.Index, diagnostics.CodeTypeMismatch, "index must be an integer or a string, got %s", value.KindOf(idx))
		}
	default:
		start, err := r.intIndex(seg.Index)
		if err != nil {
			return nil, nil, err
		}
		end, err := r.intIndex(seg.End)
		if err != nil {
			return nil, nil, err
		}
		arr, ok := cur.(value.Array)
		if !ok {
			return nil, r.fail(seg, diagnostics.CodeTypeMismatch, "cannot take a range of %s", value.KindOf(cur)), nil
		}
		if start < 0 || end < start || end > int64(len(arr)) {
			return nil, r.fail(seg, diagnostics.CodeIndexOutOfRange, "range %d:%d out of range for length %d", start, end, len(arr)), nil
		}
		return arr[start:end:end], nil, nil
	}
}

func (r *run) intIndex(expr ast.Expr) (int64, error) {
	v, err := r.expr(expr)
	if err != nil {
		return 0, err
	}
	i, ok := v.(value.Int)
	if !ok {
		return 0, r.fail(expr, diagnostics.CodeTypeMismatch, "range bounds must be integers, got %s", value.KindOf(v))
	}
	return int64(i), nil
}

func (r *run) field(seg *ast.Segment, cur value.Value, name string) (value.Value, error) {
	obj, ok := cur.(*value.Object)
	if !ok {
		return nil, r.fail(seg, diagnostics.CodeTypeMismatch, "cannot access field %q of %s", name, value.KindOf(cur))
	}
	v, ok := obj.Get(name)
	if !ok {
		return nil, r.fail(seg, diagnostics.CodeMissingField, "missing field %q", name)
	}
	return v, nil
}

// assign stores v at the path, copying every container along the way.
func (r *run) assign(p *ast.Path, v value.Value) error {
	switch p.Root {
	case ast.RootEvent:
		out, err := r.setIn(r.event, p.Segments, v)
		if err != nil {
			return err
		}
		r.event = out
	case ast.RootMeta:
		out, err := r.setIn(r.meta, p.Segments, v)
		if err != nil {
			return err
		}
		meta, ok := out.(*value.Object)
		if !ok {
			return r.fail(p, diagnostics.CodeTypeMismatch, "metadata must be a record, got %s", value.KindOf(out))
		}
		r.meta = meta
	case ast.RootLocal:
		out, err := r.setIn(r.locals[p.Slot], p.Segments, v)
		if err != nil {
			return err
		}
		r.locals[p.Slot] = out
	default:
		return r.fail(p, diagnostics.CodeInvalidContext, "cannot assign to this path")
	}
	return nil
}

// setIn returns cur with v stored below segs. A nil cur is a missing value,
// which becomes a record when a field is assigned into it.
func (r *run) setIn(cur value.Value, segs []*ast.Segment, v value.Value) (value.Value, error) {
	if len(segs) == 0 {
		return v, nil
	}
	seg := segs[0]

	name := seg.Field
	if seg.Kind == ast.SegmentIndex {
		idx, err := r.expr(seg.Index)
		if err != nil {
			return nil, err
		}
		switch i := idx.(type) {
		case value.String:
			name = string(i)
		case value.Int:
			return r.setIndex(seg, cur, int64(i), segs[1:], v)
		default:
			return nil, r.fail(seg.Index, diagnostics.CodeTypeMismatch, "index must be an integer or a string, got %s", value.KindOf(idx))
		}
	}

	var obj *value.Object
	switch c := cur.(type) {
	case nil:
		obj = value.NewObject(1)
	case *value.Object:
		obj = c
	default:
		return nil, r.fail(seg, diagnostics.CodeTypeMismatch, "cannot assign field %q into %s", name, value.KindOf(cur))
	}
	child, _ := obj.Get(name)
	updated, err := r.setIn(child, segs[1:], v)
	if err != nil {
		return nil, err
	}
	return obj.With(name, updated), nil
}

func (r *run) setIndex(seg *ast.Segment, cur value.Value, i int64, rest []*ast.Segment, v value.Value) (value.Value, error) {
	arr, ok := cur.(value.Array)
	if !ok {
		return nil, r.fail(seg, diagnostics.CodeTypeMismatch, "cannot index %s with an integer", value.KindOf(cur))
	}
	if i < 0 || i >= int64(len(arr)) {
		return nil, r.fail(seg, diagnostics.CodeIndexOutOfRange, "index %d out of range for length %d", i, len(arr))
	}
	updated, err := r.setIn(arr[i], rest, v)
	if err != nil {
		return nil, err
	}
	out := make(value.Array, len(arr))
	copy(out, arr)
	out[i] = updated
	return out, nil
}
