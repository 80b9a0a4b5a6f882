package stdlib

import (
	"fmt"
	"sync"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func badArg(i int, want string, got value.Value) error {
	return fmt.Errorf("%w: argument %d must be %s, got %s", ErrBadArgument, i+1, want, value.KindOf(got))
}

func asString(args []value.Value, i int) (string, error) {
	s, ok := args[i].(value.String)
	if !ok {
		return "", badArg(i, "a string", args[i])
	}
	return string(s), nil
}

func asInt(args []value.Value, i int) (int64, error) {
	n, ok := args[i].(value.Int)
	if !ok {
		return 0, badArg(i, "an integer", args[i])
	}
	return int64(n), nil
}

func asArray(args []value.Value, i int) (value.Array, error) {
	a, ok := args[i].(value.Array)
	if !ok {
		return nil, badArg(i, "an array", args[i])
	}
	return a, nil
}

func asObject(args []value.Value, i int) (*value.Object, error) {
	o, ok := args[i].(*value.Object)
	if !ok {
		return nil, badArg(i, "a record", args[i])
	}
	return o, nil
}

func asStrings(args []value.Value, i int) ([]string, error) {
	a, err := asArray(args, i)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(a))
	for j, item := range a {
		s, ok := item.(value.String)
		if !ok {
			return nil, fmt.Errorf("%w: argument %d must hold only strings, element %d is %s", ErrBadArgument, i+1, j, value.KindOf(item))
		}
		out[j] = string(s)
	}
	return out, nil
}

// pure builds a Function with a fixed arity that ignores the context.
func pure(module, name string, arity int, fn func(args []value.Value) (value.Value, error)) Function {
	return Function{
		Module:  module,
		Name:    name,
		MinArgs: arity,
		MaxArgs: arity,
		Pure:    true,
		Fn: func(_ *Context, args []value.Value) (value.Value, error) {
			return fn(args)
		},
	}
}

// predicate builds a pure single-argument function returning a Bool.
func predicate(module, name string, fn func(v value.Value) bool) Function {
	return pure(module, name, 1, func(args []value.Value) (value.Value, error) {
		return value.Bool(fn(args[0])), nil
	})
}

const defaultCacheSize = 256

// boundedCache memoizes compiled artifacts keyed by their source text. When
// full, an arbitrary entry is evicted.
type boundedCache[T any] struct {
	mu      sync.RWMutex
	max     int
	entries map[string]T
	compile func(string) (T, error)
}

func newBoundedCache[T any](size int, compile func(string) (T, error)) *boundedCache[T] {
	return &boundedCache[T]{
		max:     size,
		entries: make(map[string]T),
		compile: compile,
	}
}

func (c *boundedCache[T]) Get(key string) (T, error) {
	c.mu.RLock()
	if compiled, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return compiled, nil
	}
	c.mu.RUnlock()

	compiled, err := c.compile(key)
	if err != nil {
		return compiled, err
	}

	c.mu.Lock()
	if len(c.entries) >= c.max {
		for evict := range c.entries {
			delete(c.entries, evict)
			break
		}
	}
	c.entries[key] = compiled
	c.mu.Unlock()

	return compiled, nil
}

func (c *boundedCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
