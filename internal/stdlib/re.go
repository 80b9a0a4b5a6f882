package stdlib

import (
	"fmt"
	"regexp"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

var patterns = newBoundedCache(defaultCacheSize, regexp.Compile)

func reFunctions() []Function {
	return []Function{
		reFn("is_match", 2, func(re *regexp.Regexp, args []string) value.Value {
			return value.Bool(re.MatchString(args[0]))
		}),
		reFn("replace", 3, func(re *regexp.Regexp, args []string) value.Value {
			loc := re.FindStringSubmatchIndex(args[0])
			if loc == nil {
				return value.String(args[0])
			}
			replaced := re.ExpandString(nil, args[1], args[0], loc)
			return value.String(args[0][:loc[0]] + string(replaced) + args[0][loc[1]:])
		}),
		reFn("replace_all", 3, func(re *regexp.Regexp, args []string) value.Value {
			return value.String(re.ReplaceAllString(args[0], args[1]))
		}),
		reFn("split", 2, func(re *regexp.Regexp, args []string) value.Value {
			parts := re.Split(args[0], -1)
			out := make(value.Array, len(parts))
			for i, part := range parts {
				out[i] = value.String(part)
			}
			return out
		}),
	}
}

// reFn takes the pattern as the first argument followed by string
// operands.
func reFn(name string, arity int, fn func(re *regexp.Regexp, args []string) value.Value) Function {
	return pure("re", name, arity, func(args []value.Value) (value.Value, error) {
		strs, err := stringArgs(args)
		if err != nil {
			return nil, err
		}
		re, err := patterns.Get(strs[0])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid regex %q: %v", ErrBadArgument, strs[0], err)
		}
		return fn(re, strs[1:]), nil
	})
}
