// Package evaluator binds parsed scripts and runs them against events.
//
// Compile resolves names to slots, compiles extractor literals into the
// script's side table, resolves function calls and folds constant
// expressions. Run walks the bound tree once per event.
package evaluator

import (
	"errors"

	"github.com/mfelsche/tremor-runtime/internal/ast"
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/internal/extractor"
	"github.com/mfelsche/tremor-runtime/internal/stdlib"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

const DefaultMaxDepth = 1024

type Options struct {
	// Imports supplies the values of names declared with import.
	Imports map[string]value.Value
	// Registry resolves function calls; stdlib.Default() when nil.
	Registry *stdlib.Registry
	// MaxDepth bounds expression nesting at run time.
	MaxDepth int
}

// Program is a bound script. It is never modified after Compile and may be
// run from any number of goroutines.
type Program struct {
	script    *ast.Script
	functions []*stdlib.Function
	consts    []value.Value
	exports   []binding
	maxDepth  int
}

type binding struct {
	name string
	root ast.Root
	slot int
}

func (p *Program) Script() *ast.Script { return p.script }

type nameRef struct {
	name string
	id   ast.NodeID
}

type compiler struct {
	script   *ast.Script
	imports  map[string]value.Value
	registry *stdlib.Registry

	consts      map[string]int
	constValues []value.Value
	locals      map[string]int
	bound       map[string]bool
	reads       []nameRef

	functions []*stdlib.Function
	fnIndex   map[*stdlib.Function]int
	exports   []*ast.Export

	errs diagnostics.List
}

// Compile binds script in place and returns the runnable Program. All
// compile errors are reported together as a diagnostics.List.
func Compile(script *ast.Script, opts Options) (*Program, error) {
	registry := opts.Registry
	if registry == nil {
		registry = stdlib.Default()
	}
	c := &compiler{
		script:   script,
		imports:  opts.Imports,
		registry: registry,
		consts:   make(map[string]int),
		locals:   make(map[string]int),
		bound:    make(map[string]bool),
		fnIndex:  make(map[*stdlib.Function]int),
	}
	script.Extractors = nil

	for i, expr := range script.Exprs {
		script.Exprs[i] = c.topLevel(expr)
	}
	c.checkReads()
	exports := c.resolveExports()

	if err := c.errs.Err(); err != nil {
		return nil, err
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	script.Locals = len(c.locals)
	return &Program{
		script:    script,
		functions: c.functions,
		consts:    c.constValues,
		exports:   exports,
		maxDepth:  maxDepth,
	}, nil
}

func (c *compiler) errorf(id ast.NodeID, code diagnostics.Code, format string, args ...any) {
	c.errs = append(c.errs, diagnostics.Compilef(code, c.script.Span(id), format, args...))
}

func (c *compiler) topLevel(expr ast.Expr) ast.Expr {
	switch e := expr.(type) {
	case *ast.Const:
		e.Value = c.expr(e.Value)
		lit, ok := e.Value.(*ast.Literal)
		if !ok {
			c.errorf(e.ID, diagnostics.CodeNotConstant, "value of const %s is not a constant expression", e.Name)
			return e
		}
		e.Slot = c.declareConst(e.ID, e.Name, lit.Value)
		return e
	case *ast.Import:
		for _, name := range e.Names {
			v, ok := c.imports[name]
			if !ok {
				c.errorf(e.ID, diagnostics.CodeUnresolvedImport, "import %s is not provided by the host", name)
				continue
			}
			c.declareConst(e.ID, name, v)
		}
		return e
	case *ast.Export:
		c.exports = append(c.exports, e)
		return e
	default:
		return c.statement(expr)
	}
}

func (c *compiler) declareConst(id ast.NodeID, name string, v value.Value) int {
	if _, exists := c.consts[name]; exists {
		c.errorf(id, diagnostics.CodeDuplicateConst, "%s is already declared", name)
		return -1
	}
	if _, exists := c.locals[name]; exists {
		c.errorf(id, diagnostics.CodeDuplicateConst, "%s is already used as a variable", name)
		return -1
	}
	slot := len(c.constValues)
	c.consts[name] = slot
	c.constValues = append(c.constValues, v)
	return slot
}

func (c *compiler) local(name string) int {
	if slot, ok := c.locals[name]; ok {
		return slot
	}
	slot := len(c.locals)
	c.locals[name] = slot
	return slot
}

// bind allocates a slot for a name that is being assigned.
func (c *compiler) bind(id ast.NodeID, name string) int {
	if _, isConst := c.consts[name]; isConst {
		c.errorf(id, diagnostics.CodeAssignToConst, "cannot assign to constant %s", name)
		return -1
	}
	c.bound[name] = true
	return c.local(name)
}

// checkReads reports locals that are read but never assigned anywhere.
func (c *compiler) checkReads() {
	for _, ref := range c.reads {
		if !c.bound[ref.name] {
			c.errorf(ref.id, diagnostics.CodeUnknownVariable, "unknown variable %s", ref.name)
		}
	}
}

func (c *compiler) resolveExports() []binding {
	var out []binding
	seen := make(map[string]bool)
	for _, export := range c.exports {
		for _, name := range export.Names {
			if seen[name] {
				continue
			}
			seen[name] = true
			if slot, ok := c.consts[name]; ok {
				out = append(out, binding{name: name, root: ast.RootConst, slot: slot})
				continue
			}
			if c.bound[name] {
				out = append(out, binding{name: name, root: ast.RootLocal, slot: c.locals[name]})
				continue
			}
			c.errorf(export.ID, diagnostics.CodeUnknownVariable, "exported name %s is never assigned", name)
		}
	}
	return out
}

// statement compiles an expression in statement position, where emit, drop
// and return are allowed.
func (c *compiler) statement(expr ast.Expr) ast.Expr {
	switch e := expr.(type) {
	case *ast.Emit:
		if e.Value != nil {
			e.Value = c.expr(e.Value)
		}
		if e.Port != nil {
			e.Port = c.expr(e.Port)
		}
		return e
	case *ast.Drop:
		if e.Reason != nil {
			e.Reason = c.expr(e.Reason)
		}
		return e
	case *ast.Return:
		if e.Value != nil {
			e.Value = c.expr(e.Value)
		}
		return e
	case *ast.Match:
		c.match(e, c.statements)
		return e
	default:
		return c.expr(expr)
	}
}

func (c *compiler) statements(body []ast.Expr) {
	for i, expr := range body {
		body[i] = c.statement(expr)
	}
}

func (c *compiler) exprs(body []ast.Expr) {
	for i, expr := range body {
		body[i] = c.expr(expr)
	}
}

// expr compiles an expression and returns it, folded into a literal where
// possible.
func (c *compiler) expr(expr ast.Expr) ast.Expr {
	switch e := expr.(type) {
	case *ast.Literal:
		return e
	case *ast.Interpolation:
		c.exprs(e.Parts)
		return c.foldInterpolation(e)
	case *ast.Record:
		for _, field := range e.Fields {
			field.Key = c.expr(field.Key)
			field.Value = c.expr(field.Value)
		}
		return c.foldRecord(e)
	case *ast.List:
		c.exprs(e.Items)
		return c.foldList(e)
	case *ast.Binary:
		e.Left = c.expr(e.Left)
		e.Right = c.expr(e.Right)
		return c.foldBinary(e)
	case *ast.Unary:
		e.Operand = c.expr(e.Operand)
		return c.foldUnary(e)
	case *ast.Path:
		c.path(e)
		if e.Root == ast.RootConst && len(e.Segments) == 0 && e.Slot >= 0 {
			return &ast.Literal{Node: e.Node, Value: c.constValues[e.Slot]}
		}
		return e
	case *ast.Present:
		c.path(e.Path)
		return e
	case *ast.Invoke:
		c.exprs(e.Args)
		return c.invoke(e)
	case *ast.Match:
		c.match(e, c.exprs)
		return e
	case *ast.Comprehension:
		e.Target = c.expr(e.Target)
		for _, cs := range e.Cases {
			cs.KeySlot = c.bind(cs.ID, cs.KeyName)
			cs.ValueSlot = c.bind(cs.ID, cs.ValueName)
			if cs.Guard != nil {
				cs.Guard = c.expr(cs.Guard)
			}
			c.exprs(cs.Body)
		}
		return e
	case *ast.Merge:
		e.Target = c.expr(e.Target)
		e.Source = c.expr(e.Source)
		return e
	case *ast.Patch:
		e.Target = c.expr(e.Target)
		for _, op := range e.Ops {
			if op.Key != nil {
				op.Key = c.expr(op.Key)
			}
			if op.Dest != nil {
				op.Dest = c.expr(op.Dest)
			}
			if op.Value != nil {
				op.Value = c.expr(op.Value)
			}
		}
		return e
	case *ast.Let:
		e.Value = c.expr(e.Value)
		c.assignTarget(e.Target)
		return e
	case *ast.Emit, *ast.Drop, *ast.Return:
		c.errorf(expr.NodeID(), diagnostics.CodeInvalidContext, "emit, drop and return are only allowed as statements")
		return expr
	case *ast.Const, *ast.Import, *ast.Export:
		c.errorf(expr.NodeID(), diagnostics.CodeInvalidContext, "declarations are only allowed at the top level")
		return expr
	default:
		return expr
	}
}

func (c *compiler) path(p *ast.Path) {
	switch p.Root {
	case ast.RootLocal:
		if slot, ok := c.consts[p.Name]; ok {
			p.Root = ast.RootConst
			p.Slot = slot
			break
		}
		p.Slot = c.local(p.Name)
		c.reads = append(c.reads, nameRef{name: p.Name, id: p.ID})
	case ast.RootExpr:
		p.Base = c.expr(p.Base)
	}
	c.segments(p.Segments)
}

func (c *compiler) segments(segments []*ast.Segment) {
	for _, seg := range segments {
		if seg.Index != nil {
			seg.Index = c.expr(seg.Index)
		}
		if seg.End != nil {
			seg.End = c.expr(seg.End)
		}
	}
}

func (c *compiler) assignTarget(p *ast.Path) {
	if p.Root == ast.RootLocal {
		p.Slot = c.bind(p.ID, p.Name)
	}
	c.segments(p.Segments)
	for _, seg := range p.Segments {
		if seg.Kind == ast.SegmentRange {
			c.errorf(seg.ID, diagnostics.CodeInvalidContext, "cannot assign to an array range")
		}
	}
}

func (c *compiler) invoke(e *ast.Invoke) ast.Expr {
	fn, err := c.registry.Lookup(e.Module, e.Name)
	if err != nil {
		c.errorf(e.ID, diagnostics.CodeUnknownFunction, "%v", err)
		return e
	}
	if err := fn.CheckArity(len(e.Args)); err != nil {
		c.errorf(e.ID, diagnostics.CodeBadArity, "%v", err)
		return e
	}

	idx, ok := c.fnIndex[fn]
	if !ok {
		idx = len(c.functions)
		c.fnIndex[fn] = idx
		c.functions = append(c.functions, fn)
	}
	e.Fn = idx

	if !fn.Pure {
		return e
	}
	args, ok := literals(e.Args)
	if !ok {
		return e
	}
	out, err := fn.Call(nil, args)
	if err != nil {
		c.errorf(e.ID, diagnostics.CodeFunctionFailed, "%v", err)
		return e
	}
	return &ast.Literal{Node: e.Node, Value: out}
}

func (c *compiler) match(m *ast.Match, body func([]ast.Expr)) {
	m.Target = c.expr(m.Target)
	for _, clause := range m.Clauses {
		clause.Pattern = c.pattern(clause.Pattern)
		if clause.Guard != nil {
			clause.Guard = c.expr(clause.Guard)
		}
		body(clause.Body)
	}
	if m.HasDefault {
		body(m.Default)
	}
}

func (c *compiler) pattern(p ast.Pattern) ast.Pattern {
	switch pat := p.(type) {
	case *ast.RecordPattern:
		for _, field := range pat.Fields {
			switch field.Kind {
			case ast.FieldCompare:
				field.Expr = c.expr(field.Expr)
			case ast.FieldExtract:
				c.extractor(field.Extractor)
			case ast.FieldNested:
				field.Sub = c.pattern(field.Sub)
			}
		}
	case *ast.ArrayPattern:
		for i, elem := range pat.Elems {
			pat.Elems[i] = c.pattern(elem)
		}
		if pat.Rest != "" {
			pat.RestSlot = c.bind(pat.ID, pat.Rest)
		}
	case *ast.ExtractorPattern:
		c.extractor(pat.Extractor)
	case *ast.ComparisonPattern:
		pat.Expr = c.expr(pat.Expr)
	case *ast.AssignPattern:
		pat.Slot = c.bind(pat.ID, pat.Name)
		pat.Pattern = c.pattern(pat.Pattern)
	}
	return p
}

func (c *compiler) extractor(ref *ast.ExtractorRef) {
	compiled, err := extractor.Compile(ref.Kind, ref.Body)
	switch {
	case errors.Is(err, extractor.ErrUnknownKind):
		c.errorf(ref.NodeID(), diagnostics.CodeUnknownExtractor, "%v", err)
		return
	case err != nil:
		c.errorf(ref.NodeID(), diagnostics.CodeInvalidExtractor, "%v", err)
		return
	}
	ref.ID = len(c.script.Extractors)
	c.script.Extractors = append(c.script.Extractors, compiled)
}

func literals(exprs []ast.Expr) ([]value.Value, bool) {
	out := make([]value.Value, len(exprs))
	for i, expr := range exprs {
		lit, ok := expr.(*ast.Literal)
		if !ok {
			return nil, false
		}
		out[i] = lit.Value
	}
	return out, true
}

func (c *compiler) foldInterpolation(e *ast.Interpolation) ast.Expr {
	parts, ok := literals(e.Parts)
	if !ok {
		return e
	}
	return &ast.Literal{Node: e.Node, Value: value.String(interpolate(parts))}
}

func (c *compiler) foldRecord(e *ast.Record) ast.Expr {
	out := value.NewObject(len(e.Fields))
	for _, field := range e.Fields {
		k, kok := field.Key.(*ast.Literal)
		v, vok := field.Value.(*ast.Literal)
		if !kok || !vok {
			return e
		}
		name, err := key(k.Value)
		if err != nil {
			c.errorf(field.ID, diagnostics.CodeTypeMismatch, "%v", err)
			return e
		}
		out.Set(name, v.Value)
	}
	return &ast.Literal{Node: e.Node, Value: out}
}

func (c *compiler) foldList(e *ast.List) ast.Expr {
	items, ok := literals(e.Items)
	if !ok {
		return e
	}
	return &ast.Literal{Node: e.Node, Value: value.Array(items)}
}

func (c *compiler) foldBinary(e *ast.Binary) ast.Expr {
	operands, ok := literals([]ast.Expr{e.Left, e.Right})
	if !ok {
		return e
	}
	out, err := binary(e.Op, operands[0], operands[1])
	if err != nil {
		c.errorf(e.ID, codeOf(err), "%s: %v", e.Op, err)
		return e
	}
	return &ast.Literal{Node: e.Node, Value: out}
}

func (c *compiler) foldUnary(e *ast.Unary) ast.Expr {
	lit, ok := e.Operand.(*ast.Literal)
	if !ok {
		return e
	}
	out, err := unary(e.Op, lit.Value)
	if err != nil {
		c.errorf(e.ID, codeOf(err), "%s: %v", e.Op, err)
		return e
	}
	return &ast.Literal{Node: e.Node, Value: out}
}

