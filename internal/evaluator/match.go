package evaluator

import (
	"github.com/mfelsche/tremor-runtime/internal/ast"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

// match selects the first clause whose pattern matches and whose guard
// holds. Bindings made while testing a clause are rolled back unless the
// clause is selected.
func (r *run) match(m *ast.Match) (cont, error) {
	target, err := r.expr(m.Target)
	if err != nil {
		return cont{}, err
	}

	for _, clause := range m.Clauses {
		mark := len(r.undo)
		ok, _, err := r.matchPattern(clause.Pattern, target)
		if err == nil && ok && clause.Guard != nil {
			ok, err = r.guard(clause.Guard)
		}
		if err != nil || !ok {
			r.rollback(mark)
			if err != nil {
				return cont{}, err
			}
			continue
		}
		r.undo = r.undo[:mark]
		return r.block(clause.Body)
	}

	if m.HasDefault {
		return r.block(m.Default)
	}
	return next(value.Null{}), nil
}

func (r *run) bind(slot int, v value.Value) {
	r.undo = append(r.undo, undoEntry{slot: slot, prev: r.locals[slot]})
	r.locals[slot] = v
}

func (r *run) rollback(mark int) {
	for i := len(r.undo) - 1; i >= mark; i-- {
		r.locals[r.undo[i].slot] = r.undo[i].prev
	}
	r.undo = r.undo[:mark]
}

// matchPattern tests v against p. The returned value is what an enclosing
// assignment pattern binds: v itself, or v with extractor outputs merged in.
func (r *run) matchPattern(p ast.Pattern, v value.Value) (bool, value.Value, error) {
	switch pat := p.(type) {
	case *ast.DefaultPattern:
		return true, v, nil
	case *ast.ExtractorPattern:
		res := r.prog.script.Extractors[pat.Extractor.ID].Extract(v)
		return res.Matched, res.Value, nil
	case *ast.ComparisonPattern:
		rhs, err := r.expr(pat.Expr)
		if err != nil {
			return false, nil, err
		}
		return compare(pat.Op, v, rhs), v, nil
	case *ast.AssignPattern:
		ok, bound, err := r.matchPattern(pat.Pattern, v)
		if err != nil || !ok {
			return false, nil, err
		}
		r.bind(pat.Slot, bound)
		return true, bound, nil
	case *ast.RecordPattern:
		return r.matchRecord(pat, v)
	case *ast.ArrayPattern:
		return r.matchArray(pat, v)
	default:
		return false, nil, nil
	}
}

func (r *run) matchRecord(pat *ast.RecordPattern, v value.Value) (bool, value.Value, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return false, nil, nil
	}

	result := obj
	for _, field := range pat.Fields {
		current, exists := obj.Get(field.Name)
		switch field.Kind {
		case ast.FieldPresent:
			if !exists {
				return false, nil, nil
			}
		case ast.FieldAbsent:
			if exists {
				return false, nil, nil
			}
		case ast.FieldCompare:
			if !exists {
				return false, nil, nil
			}
			rhs, err := r.expr(field.Expr)
			if err != nil {
				return false, nil, err
			}
			if !compare(field.Op, current, rhs) {
				return false, nil, nil
			}
		case ast.FieldExtract:
			if !exists {
				return false, nil, nil
			}
			res := r.prog.script.Extractors[field.Extractor.ID].Extract(current)
			if !res.Matched {
				return false, nil, nil
			}
			result = result.With(field.Name, res.Value)
		case ast.FieldNested:
			if !exists {
				return false, nil, nil
			}
			ok, bound, err := r.matchPattern(field.Sub, current)
			if err != nil || !ok {
				return false, nil, err
			}
			result = result.With(field.Name, bound)
		}
	}

	if pat.Closed {
		allowed := make(map[string]bool, len(pat.Fields))
		for _, field := range pat.Fields {
			allowed[field.Name] = true
		}
		for _, k := range obj.Keys() {
			if !allowed[k] {
				return false, nil, nil
			}
		}
	}
	return true, result, nil
}

func (r *run) matchArray(pat *ast.ArrayPattern, v value.Value) (bool, value.Value, error) {
	arr, ok := v.(value.Array)
	if !ok {
		return false, nil, nil
	}
	if len(arr) < len(pat.Elems) || (!pat.Open && len(arr) != len(pat.Elems)) {
		return false, nil, nil
	}

	result := make(value.Array, len(arr))
	copy(result, arr)
	for i, elem := range pat.Elems {
		ok, bound, err := r.matchPattern(elem, arr[i])
		if err != nil || !ok {
			return false, nil, err
		}
		result[i] = bound
	}
	if pat.Rest != "" {
		rest := make(value.Array, len(arr)-len(pat.Elems))
		copy(rest, arr[len(pat.Elems):])
		r.bind(pat.RestSlot, rest)
	}
	return true, result, nil
}
