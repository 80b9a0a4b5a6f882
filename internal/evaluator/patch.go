package evaluator

import (
	"fmt"

	"github.com/mfelsche/tremor-runtime/internal/ast"
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

// patch applies the operations in order to a copy of the target.
func (r *run) patch(e *ast.Patch) (value.Value, error) {
	target, err := r.expr(e.Target)
	if err != nil {
		return nil, err
	}
	obj, ok := target.(*value.Object)
	if !ok {
		return nil, r.fail(e.Target, diagnostics.CodePatchFailed, "patch target must be a record, got %s", value.KindOf(target))
	}

	out := obj.Copy()
	for _, op := range e.Ops {
		if out, err = r.patchOp(op, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// patchOp applies one operation. out is owned by the patch and updated in
// place; the returned record replaces it.
func (r *run) patchOp(op *ast.PatchOp, out *value.Object) (*value.Object, error) {
	var name string
	if op.Key != nil {
		k, err := r.patchKey(op.Key)
		if err != nil {
			return nil, err
		}
		name = k
	}

	var v value.Value
	if op.Value != nil {
		evaluated, err := r.expr(op.Value)
		if err != nil {
			return nil, err
		}
		v = evaluated
	}

	failf := func(format string, args ...any) error {
		return r.fail(op, diagnostics.CodePatchFailed, "%s: %s", op.Kind, fmt.Sprintf(format, args...))
	}

	switch op.Kind {
	case ast.PatchInsert:
		if out.Has(name) {
			return nil, failf("key %q already exists", name)
		}
		out.Set(name, v)
	case ast.PatchUpdate:
		if !out.Has(name) {
			return nil, failf("key %q does not exist", name)
		}
		out.Set(name, v)
	case ast.PatchUpsert:
		out.Set(name, v)
	case ast.PatchErase:
		out.Delete(name)
	case ast.PatchMove, ast.PatchCopy:
		dest, err := r.patchKey(op.Dest)
		if err != nil {
			return nil, err
		}
		moved, ok := out.Get(name)
		if !ok {
			return nil, failf("key %q does not exist", name)
		}
		if out.Has(dest) {
			return nil, failf("key %q already exists", dest)
		}
		if op.Kind == ast.PatchMove {
			out.Delete(name)
		}
		out.Set(dest, moved)
	case ast.PatchMerge:
		if op.Key == nil {
			merged, err := mergeInto(out, v)
			if err != nil {
				return nil, failf("%v", err)
			}
			return merged, nil
		}
		var existing value.Value = value.NewObject(0)
		if current, ok := out.Get(name); ok {
			if _, isObj := current.(*value.Object); isObj {
				existing = current
			}
		}
		merged, err := value.Merge(existing, v)
		if err != nil {
			return nil, failf("%v", err)
		}
		out.Set(name, merged)
	case ast.PatchDefault:
		if op.Key != nil {
			if !out.Has(name) {
				out.Set(name, v)
			}
			return out, nil
		}
		defaults, ok := v.(*value.Object)
		if !ok {
			return nil, failf("default values must be a record, got %s", value.KindOf(v))
		}
		defaults.Range(func(k string, item value.Value) bool {
			if !out.Has(k) {
				out.Set(k, item)
			}
			return true
		})
	}
	return out, nil
}

func (r *run) patchKey(expr ast.Expr) (string, error) {
	v, err := r.expr(expr)
	if err != nil {
		return "", err
	}
	name, err := key(v)
	if err != nil {
		return "", r.fail(expr, diagnostics.CodeTypeMismatch, "%v", err)
	}
	return name, nil
}

// mergeInto merges a record into the patch target.
func mergeInto(target *value.Object, v value.Value) (*value.Object, error) {
	source, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("%w: merge value must be a record, got %s", errBadPatch, value.KindOf(v))
	}
	merged, err := value.Merge(target, source)
	if err != nil {
		return nil, err
	}
	return merged.(*value.Object), nil
}
