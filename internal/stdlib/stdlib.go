// Package stdlib is the function library scripts call as module::name(...).
//
// Functions are resolved once at compile time through a Registry. Pure
// functions depend only on their arguments and may be folded into constants
// when every argument is a literal; the rest read the per-run Context.
package stdlib

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mfelsche/tremor-runtime/internal/clock"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrArity           = errors.New("wrong number of arguments")
	ErrBadArgument     = errors.New("bad argument")
	ErrDuplicate       = errors.New("function already registered")
)

// Context carries host-provided facts for the context functions. It is
// read-only during a run.
type Context struct {
	Hostname string
	Instance string
	// IngestNS is the ingest timestamp of the current event in nanoseconds.
	IngestNS int64
	Origin   string
	// Now backs system::nanotime; the host clock is used when nil.
	Now func() time.Time
}

func (c *Context) now() time.Time {
	if c == nil || c.Now == nil {
		return clock.Now()
	}
	return c.Now()
}

// Func is the implementation of a library function. Arity has already been
// checked when it is called.
type Func func(ctx *Context, args []value.Value) (value.Value, error)

// Variadic as MaxArgs accepts any number of trailing arguments.
const Variadic = -1

type Function struct {
	Module  string
	Name    string
	MinArgs int
	MaxArgs int
	// Pure functions may be evaluated at compile time.
	Pure bool
	Fn   Func
}

func (f *Function) QualifiedName() string {
	return f.Module + "::" + f.Name
}

// CheckArity reports whether n arguments are acceptable.
func (f *Function) CheckArity(n int) error {
	if n < f.MinArgs || (f.MaxArgs != Variadic && n > f.MaxArgs) {
		return fmt.Errorf("%w: %s takes %s, got %d", ErrArity, f.QualifiedName(), f.arityText(), n)
	}
	return nil
}

func (f *Function) arityText() string {
	switch {
	case f.MaxArgs == Variadic:
		return fmt.Sprintf("at least %d", f.MinArgs)
	case f.MinArgs == f.MaxArgs:
		return fmt.Sprintf("%d", f.MinArgs)
	default:
		return fmt.Sprintf("%d to %d", f.MinArgs, f.MaxArgs)
	}
}

// Call checks arity and runs the function, prefixing errors with its name.
func (f *Function) Call(ctx *Context, args []value.Value) (value.Value, error) {
	if err := f.CheckArity(len(args)); err != nil {
		return nil, err
	}
	out, err := f.Fn(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.QualifiedName(), err)
	}
	return out, nil
}

type Registry struct {
	mu        sync.RWMutex
	functions map[string]*Function
}

// NewRegistry returns an empty registry; New returns one with the builtin
// modules.
func NewRegistry() *Registry {
	return &Registry{functions: make(map[string]*Function)}
}

func New() *Registry {
	r := NewRegistry()
	for _, group := range [][]Function{
		stringFunctions(),
		arrayFunctions(),
		recordFunctions(),
		mathFunctions(),
		typeFunctions(),
		jsonFunctions(),
		reFunctions(),
		systemFunctions(),
	} {
		for _, f := range group {
			if err := r.Register(f); err != nil {
				panic(err)
			}
		}
	}
	return r
}

var defaultRegistry = sync.OnceValue(New)

// Default returns the shared registry of builtin functions.
func Default() *Registry {
	return defaultRegistry()
}

// Register adds a host function. Names must be unique.
func (r *Registry) Register(f Function) error {
	if f.Module == "" || f.Name == "" || f.Fn == nil {
		return fmt.Errorf("%w: function needs a module, a name and an implementation", ErrBadArgument)
	}
	if f.MaxArgs != Variadic && f.MaxArgs < f.MinArgs {
		return fmt.Errorf("%w: %s has MaxArgs below MinArgs", ErrBadArgument, f.QualifiedName())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := f.QualifiedName()
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}
	r.functions[key] = &f
	return nil
}

// Lookup resolves module::name. The error suggests a close name when one
// exists.
func (r *Registry) Lookup(module, name string) (*Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.functions[module+"::"+name]; ok {
		return f, nil
	}
	if suggestion := r.suggest(module + "::" + name); suggestion != "" {
		return nil, fmt.Errorf("%w: %s::%s (did you mean %s?)", ErrUnknownFunction, module, name, suggestion)
	}
	return nil, fmt.Errorf("%w: %s::%s", ErrUnknownFunction, module, name)
}

func (r *Registry) suggest(target string) string {
	candidates := make([]string, 0, len(r.functions))
	for key := range r.functions {
		candidates = append(candidates, key)
	}
	sort.Strings(candidates)

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Stable(ranks)
		return ranks[0].Target
	}

	best, bestDistance := "", 3
	for _, candidate := range candidates {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(target), candidate); d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}

// Names lists every registered module::name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for key := range r.functions {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}
