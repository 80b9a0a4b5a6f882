// Package script is the embedding API of the event scripting engine.
//
// A Script is compiled once and may then be run concurrently against any
// number of events:
//
//	s, err := script.Compile(`match event of case %{level == "debug"} => drop default => emit end`)
//	if err != nil {
//		fmt.Println(script.Render(src, err))
//	}
//	out := s.Run(&script.Event{Value: v}, script.Context{Hostname: "node-1"})
package script

import (
	"time"

	"github.com/mfelsche/tremor-runtime/internal/ast"
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/internal/evaluator"
	"github.com/mfelsche/tremor-runtime/internal/parser"
	"github.com/mfelsche/tremor-runtime/internal/stdlib"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

// Error types are shared with the engine so callers can use errors.As and
// errors.Is on anything Compile or Run returns.
type (
	SyntaxError  = diagnostics.SyntaxError
	CompileError = diagnostics.CompileError
	RuntimeError = diagnostics.RuntimeError
	Diagnostic   = diagnostics.Diagnostic
	Code         = diagnostics.Code
)

var (
	ErrSyntax  = diagnostics.ErrSyntax
	ErrCompile = diagnostics.ErrCompile
	ErrRuntime = diagnostics.ErrRuntime
)

// Diagnostics flattens err into its individual diagnostics.
func Diagnostics(err error) []Diagnostic {
	return diagnostics.All(err)
}

// CodeOf returns the code of the first diagnostic in err, or "" if none.
func CodeOf(err error) Code {
	return diagnostics.CodeOf(err)
}

// Render prints every diagnostic in err with an excerpt of source.
func Render(source string, err error) string {
	return diagnostics.Render(source, err)
}

// DefaultPort is the port of emits that do not name one.
const DefaultPort = evaluator.DefaultPort

// Kind is the disposition of one run.
type Kind int

const (
	Emit Kind = iota
	Drop
	Error
)

func (k Kind) String() string {
	switch k {
	case Emit:
		return "emit"
	case Drop:
		return "drop"
	default:
		return "error"
	}
}

// Event is one event body with its metadata and read-only ingest facts.
type Event struct {
	Value value.Value
	// Meta is the $ namespace. Nil means empty.
	Meta     *value.Object
	IngestNS int64
	Origin   string
}

// Context holds host facts read by the system:: functions.
type Context struct {
	Hostname string
	Instance string
	// Now defaults to the wall clock.
	Now func() time.Time
}

// Outcome is the result of running a script against one event. For Emit,
// Value is the emitted value and Port its destination. For Drop, Value is
// the event body as it was when the run ended. Err is set only for Error.
type Outcome struct {
	Kind    Kind
	Value   value.Value
	Meta    *value.Object
	Port    string
	Reason  value.Value
	Err     error
	Exports *value.Object
}

type options struct {
	imports  map[string]value.Value
	registry *stdlib.Registry
	maxDepth int
}

type Option func(*options)

// WithImports supplies the values of names the script declares with import.
func WithImports(imports map[string]value.Value) Option {
	return func(o *options) {
		o.imports = imports
	}
}

// WithRegistry resolves function calls against registry instead of the
// builtin library.
func WithRegistry(registry *stdlib.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithMaxDepth bounds expression nesting during a run.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		o.maxDepth = depth
	}
}

// Script is a compiled script. It is immutable and safe for concurrent use.
type Script struct {
	source  string
	program *evaluator.Program
}

// Compile parses and binds source. The error is a *diagnostics.SyntaxError
// or one or more *diagnostics.CompileError values in a diagnostics.List.
func Compile(source string, opts ...Option) (*Script, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	tree, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	program, err := evaluator.Compile(tree, evaluator.Options{
		Imports:  o.imports,
		Registry: o.registry,
		MaxDepth: o.maxDepth,
	})
	if err != nil {
		return nil, err
	}
	return &Script{source: source, program: program}, nil
}

func (s *Script) Source() string {
	return s.source
}

// Run evaluates the script against ev. A failed run is reported as an
// Outcome of kind Error; ev is never modified.
func (s *Script) Run(ev *Event, ctx Context) Outcome {
	in := evaluator.Input{Event: value.Null{}}
	runCtx := &stdlib.Context{Hostname: ctx.Hostname, Instance: ctx.Instance, Now: ctx.Now}
	if ev != nil {
		if ev.Value != nil {
			in.Event = ev.Value
		}
		in.Meta = ev.Meta
		runCtx.IngestNS = ev.IngestNS
		runCtx.Origin = ev.Origin
	}
	in.Context = runCtx

	res := s.program.Run(in)
	out := Outcome{
		Value:   res.Value,
		Meta:    res.Meta,
		Port:    res.Port,
		Reason:  res.Reason,
		Err:     res.Err,
		Exports: res.Exports,
	}
	switch res.Disposition {
	case evaluator.Emit:
		out.Kind = Emit
	case evaluator.Drop:
		out.Kind = Drop
	default:
		out.Kind = Error
	}
	return out
}

// Format returns the canonical formatting of source.
func Format(source string) (string, error) {
	tree, err := parser.Parse(source)
	if err != nil {
		return "", err
	}
	return ast.Format(tree), nil
}
