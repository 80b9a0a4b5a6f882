package evaluator

import (
	"strings"

	"github.com/mfelsche/tremor-runtime/internal/ast"
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/internal/stdlib"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

// DefaultPort is the port of emits that do not name one.
const DefaultPort = "out"

type Disposition int

const (
	Emit Disposition = iota
	Drop
	Error
)

func (d Disposition) String() string {
	switch d {
	case Emit:
		return "emit"
	case Drop:
		return "drop"
	default:
		return "error"
	}
}

// Input is one event with its metadata and the host facts for the run.
type Input struct {
	Event   value.Value
	Meta    *value.Object
	Context *stdlib.Context
}

// Result is the outcome of one run. Value and Meta hold the event state
// when the run ended; for an emit Value is the emitted value.
type Result struct {
	Disposition Disposition
	Value       value.Value
	Meta        *value.Object
	Port        string
	// Reason is the value given to drop, null when none was.
	Reason  value.Value
	Err     error
	Exports *value.Object
}

type contKind int

const (
	contNext contKind = iota
	contEmit
	contDrop
)

// cont carries the value of a statement and whether the run continues.
type cont struct {
	kind  contKind
	value value.Value
	port  string
}

func next(v value.Value) cont {
	return cont{kind: contNext, value: v}
}

type undoEntry struct {
	slot int
	prev value.Value
}

// run is the state of one evaluation. It is never shared.
type run struct {
	prog   *Program
	event  value.Value
	meta   *value.Object
	ctx    *stdlib.Context
	locals []value.Value
	undo   []undoEntry
	depth  int
}

// Run evaluates the program against one event. The input values are not
// modified.
func (p *Program) Run(in Input) Result {
	r := &run{
		prog:   p,
		event:  in.Event,
		meta:   in.Meta,
		ctx:    in.Context,
		locals: make([]value.Value, p.script.Locals),
	}
	if r.event == nil {
		r.event = value.Null{}
	}
	if r.meta == nil {
		r.meta = value.NewObject(0)
	}

	c, err := r.top()
	out := Result{Value: r.event, Meta: r.meta, Reason: value.Null{}, Exports: r.exports()}
	switch {
	case err != nil:
		out.Disposition = Error
		out.Err = err
	case c.kind == contDrop:
		out.Disposition = Drop
		out.Reason = c.value
	default:
		out.Disposition = Emit
		out.Value = c.value
		out.Port = c.port
	}
	return out
}

func (r *run) top() (cont, error) {
	var last value.Value
	for _, expr := range r.prog.script.Exprs {
		switch expr.(type) {
		case *ast.Const, *ast.Import, *ast.Export:
			continue
		}
		c, err := r.stmt(expr)
		if err != nil {
			return cont{}, err
		}
		if c.kind != contNext {
			return c, nil
		}
		last = c.value
	}
	if last == nil {
		last = r.event
	}
	return cont{kind: contEmit, value: last, port: DefaultPort}, nil
}

func (r *run) exports() *value.Object {
	out := value.NewObject(len(r.prog.exports))
	for _, export := range r.prog.exports {
		switch export.root {
		case ast.RootConst:
			out.Set(export.name, r.prog.consts[export.slot])
		default:
			if v := r.locals[export.slot]; v != nil {
				out.Set(export.name, v)
			}
		}
	}
	return out
}

func (r *run) fail(node interface{ NodeID() ast.NodeID }, code diagnostics.Code, format string, args ...any) error {
	return diagnostics.Runtimef(code, r.prog.script.Span(node.NodeID()), format, args...)
}

func (r *run) stmt(expr ast.Expr) (cont, error) {
	switch e := expr.(type) {
	case *ast.Emit:
		emitted := r.event
		if e.Value != nil {
			v, err := r.expr(e.Value)
			if err != nil {
				return cont{}, err
			}
			emitted = v
		}
		port := DefaultPort
		if e.Port != nil {
			v, err := r.expr(e.Port)
			if err != nil {
				return cont{}, err
			}
			s, ok := v.(value.String)
			if !ok {
				return cont{}, r.fail(e.Port, diagnostics.CodeTypeMismatch, "port must be a string, got %s", value.KindOf(v))
			}
			port = string(s)
		}
		return cont{kind: contEmit, value: emitted, port: port}, nil
	case *ast.Drop:
		var reason value.Value = value.Null{}
		if e.Reason != nil {
			v, err := r.expr(e.Reason)
			if err != nil {
				return cont{}, err
			}
			reason = v
		}
		return cont{kind: contDrop, value: reason}, nil
	case *ast.Return:
		returned := r.event
		if e.Value != nil {
			v, err := r.expr(e.Value)
			if err != nil {
				return cont{}, err
			}
			returned = v
		}
		return cont{kind: contEmit, value: returned, port: DefaultPort}, nil
	case *ast.Match:
		return r.match(e)
	default:
		v, err := r.expr(expr)
		return next(v), err
	}
}

// block runs a clause body. Its value is the value of the last expression.
func (r *run) block(body []ast.Expr) (cont, error) {
	c := next(value.Null{})
	for _, expr := range body {
		var err error
		c, err = r.stmt(expr)
		if err != nil || c.kind != contNext {
			return c, err
		}
	}
	return c, nil
}

func (r *run) expr(expr ast.Expr) (value.Value, error) {
	r.depth++
	defer func() { r.depth-- }()
	if r.depth > r.prog.maxDepth {
		return nil, r.fail(expr, diagnostics.CodeDepthExceeded, "expression nesting exceeds %d", r.prog.maxDepth)
	}

	switch e := expr.(type) {
	case *ast.Literal:
		return e.Value, nil
	case *ast.Interpolation:
		parts, err := r.values(e.Parts)
		if err != nil {
			return nil, err
		}
		return value.String(interpolate(parts)), nil
	case *ast.Record:
		out := value.NewObject(len(e.Fields))
		for _, field := range e.Fields {
			k, err := r.expr(field.Key)
			if err != nil {
				return nil, err
			}
			name, err := key(k)
			if err != nil {
				return nil, r.fail(field.Key, diagnostics.CodeTypeMismatch, "%v", err)
			}
			v, err := r.expr(field.Value)
			if err != nil {
				return nil, err
			}
			out.Set(name, v)
		}
		return out, nil
	case *ast.List:
		items, err := r.values(e.Items)
		if err != nil {
			return nil, err
		}
		return value.Array(items), nil
	case *ast.Binary:
		return r.binary(e)
	case *ast.Unary:
		operand, err := r.expr(e.Operand)
		if err != nil {
			return nil, err
		}
		out, err := unary(e.Op, operand)
		if err != nil {
			return nil, r.fail(e, codeOf(err), "%s: %v", e.Op, err)
		}
		return out, nil
	case *ast.Path:
		return r.read(e)
	case *ast.Present:
		found, err := r.present(e.Path)
		return value.Bool(found), err
	case *ast.Invoke:
		args, err := r.values(e.Args)
		if err != nil {
			return nil, err
		}
		out, err := r.prog.functions[e.Fn].Call(r.ctx, args)
		if err != nil {
			return nil, r.fail(e, codeOf(err), "%v", err)
		}
		return out, nil
	case *ast.Match:
		c, err := r.match(e)
		return c.value, err
	case *ast.Comprehension:
		return r.comprehension(e)
	case *ast.Merge:
		target, err := r.expr(e.Target)
		if err != nil {
			return nil, err
		}
		source, err := r.expr(e.Source)
		if err != nil {
			return nil, err
		}
		out, err := value.Merge(target, source)
		if err != nil {
			return nil, r.fail(e, diagnostics.CodeMergeFailed, "%v", err)
		}
		return out, nil
	case *ast.Patch:
		return r.patch(e)
	case *ast.Let:
		v, err := r.expr(e.Value)
		if err != nil {
			return nil, err
		}
		if err := r.assign(e.Target, v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, r.fail(expr, diagnostics.CodeInvalidContext, "%T cannot be evaluated here", expr)
	}
}

func (r *run) values(exprs []ast.Expr) ([]value.Value, error) {
	out := make([]value.Value, len(exprs))
	for i, expr := range exprs {
		v, err := r.expr(expr)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *run) binary(e *ast.Binary) (value.Value, error) {
	left, err := r.expr(e.Left)
	if err != nil {
		return nil, err
	}

	if e.Op == ast.OpAnd || e.Op == ast.OpOr {
		l, err := truthy(left)
		if err != nil {
			return nil, r.fail(e.Left, diagnostics.CodeTypeMismatch, "%s: %v", e.Op, err)
		}
		if l == (e.Op == ast.OpOr) {
			return value.Bool(l), nil
		}
		right, err := r.expr(e.Right)
		if err != nil {
			return nil, err
		}
		rb, err := truthy(right)
		if err != nil {
			return nil, r.fail(e.Right, diagnostics.CodeTypeMismatch, "%s: %v", e.Op, err)
		}
		return value.Bool(rb), nil
	}

	right, err := r.expr(e.Right)
	if err != nil {
		return nil, err
	}
	out, err := binary(e.Op, left, right)
	if err != nil {
		return nil, r.fail(e, codeOf(err), "%s: %v", e.Op, err)
	}
	return out, nil
}

func interpolate(parts []value.Value) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(value.Stringify(part))
	}
	return b.String()
}

func (r *run) comprehension(e *ast.Comprehension) (value.Value, error) {
	target, err := r.expr(e.Target)
	if err != nil {
		return nil, err
	}

	var keys, items []value.Value
	switch t := target.(type) {
	case *value.Object:
		t.Range(func(k string, v value.Value) bool {
			keys = append(keys, value.String(k))
			items = append(items, v)
			return true
		})
	case value.Array:
		for i, v := range t {
			keys = append(keys, value.Int(i))
			items = append(items, v)
		}
	default:
		return nil, r.fail(e.Target, diagnostics.CodeTypeMismatch, "for needs a record or an array, got %s", value.KindOf(target))
	}

	out := make(value.Array, 0, len(items))
	for i := range items {
		for _, cs := range e.Cases {
			r.locals[cs.KeySlot] = keys[i]
			r.locals[cs.ValueSlot] = items[i]
			if cs.Guard != nil {
				ok, err := r.guard(cs.Guard)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}
			c, err := r.block(cs.Body)
			if err != nil {
				return nil, err
			}
			out = append(out, c.value)
			break
		}
	}
	return out, nil
}

func (r *run) guard(expr ast.Expr) (bool, error) {
	v, err := r.expr(expr)
	if err != nil {
		return false, err
	}
	ok, err := truthy(v)
	if err != nil {
		return false, r.fail(expr, diagnostics.CodeTypeMismatch, "guard: %v", err)
	}
	return ok, nil
}
