package stdlib

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	ac "github.com/petar-dambovaliev/aho-corasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

const needleSeparator = "\x00"

// automata holds Aho-Corasick matchers keyed by their NUL-joined needles.
var automata = newBoundedCache(defaultCacheSize, func(key string) (*ac.AhoCorasick, error) {
	builder := ac.NewAhoCorasickBuilder(ac.Opts{MatchKind: ac.LeftMostLongestMatch})
	built := builder.Build(strings.Split(key, needleSeparator))
	return &built, nil
})

func stringFunctions() []Function {
	return []Function{
		stringFn("len", func(s string) value.Value { return value.Int(utf8.RuneCountInString(s)) }),
		stringFn("bytes", func(s string) value.Value { return value.Int(len(s)) }),
		stringFn("is_empty", func(s string) value.Value { return value.Bool(s == "") }),
		stringFn("lowercase", func(s string) value.Value { return value.String(strings.ToLower(s)) }),
		stringFn("uppercase", func(s string) value.Value { return value.String(strings.ToUpper(s)) }),
		stringFn("capitalize", capitalize),
		stringFn("title", func(s string) value.Value {
			return value.String(cases.Title(language.Und).String(s))
		}),
		stringFn("trim", func(s string) value.Value { return value.String(strings.TrimSpace(s)) }),
		stringFn("trim_start", func(s string) value.Value {
			return value.String(strings.TrimLeftFunc(s, unicode.IsSpace))
		}),
		stringFn("trim_end", func(s string) value.Value {
			return value.String(strings.TrimRightFunc(s, unicode.IsSpace))
		}),
		stringFn("reverse", func(s string) value.Value {
			runes := []rune(s)
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return value.String(runes)
		}),
		stringFn("normalize", func(s string) value.Value { return value.String(norm.NFC.String(s)) }),
		pure("string", "replace", 3, func(args []value.Value) (value.Value, error) {
			parts, err := stringArgs(args)
			if err != nil {
				return nil, err
			}
			return value.String(strings.ReplaceAll(parts[0], parts[1], parts[2])), nil
		}),
		stringPair("contains", func(s, sub string) value.Value { return value.Bool(strings.Contains(s, sub)) }),
		stringPair("starts_with", func(s, prefix string) value.Value { return value.Bool(strings.HasPrefix(s, prefix)) }),
		stringPair("ends_with", func(s, suffix string) value.Value { return value.Bool(strings.HasSuffix(s, suffix)) }),
		stringPair("split", func(s, sep string) value.Value {
			parts := strings.Split(s, sep)
			out := make(value.Array, len(parts))
			for i, part := range parts {
				out[i] = value.String(part)
			}
			return out
		}),
		pure("string", "substr", 3, substr),
		{Module: "string", Name: "format", MinArgs: 1, MaxArgs: Variadic, Pure: true, Fn: func(_ *Context, args []value.Value) (value.Value, error) {
			return format(args)
		}},
		pure("string", "contains_any", 2, func(args []value.Value) (value.Value, error) {
			found, err := findNeedles(args, true)
			if err != nil {
				return nil, err
			}
			return value.Bool(len(found) > 0), nil
		}),
		pure("string", "find_any", 2, func(args []value.Value) (value.Value, error) {
			found, err := findNeedles(args, false)
			if err != nil {
				return nil, err
			}
			out := make(value.Array, len(found))
			for i, needle := range found {
				out[i] = value.String(needle)
			}
			return out, nil
		}),
	}
}

func stringFn(name string, fn func(s string) value.Value) Function {
	return pure("string", name, 1, func(args []value.Value) (value.Value, error) {
		s, err := asString(args, 0)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	})
}

func stringPair(name string, fn func(a, b string) value.Value) Function {
	return pure("string", name, 2, func(args []value.Value) (value.Value, error) {
		parts, err := stringArgs(args)
		if err != nil {
			return nil, err
		}
		return fn(parts[0], parts[1]), nil
	})
}

func stringArgs(args []value.Value) ([]string, error) {
	out := make([]string, len(args))
	for i := range args {
		s, err := asString(args, i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func capitalize(s string) value.Value {
	first, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return value.String(s)
	}
	return value.String(string(unicode.ToUpper(first)) + s[size:])
}

// substr slices by rune index, end exclusive.
func substr(args []value.Value) (value.Value, error) {
	s, err := asString(args, 0)
	if err != nil {
		return nil, err
	}
	start, err := asInt(args, 1)
	if err != nil {
		return nil, err
	}
	end, err := asInt(args, 2)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	if start < 0 || end < start || end > int64(len(runes)) {
		return nil, fmt.Errorf("%w: range %d..%d out of bounds for length %d", ErrBadArgument, start, end, len(runes))
	}
	return value.String(runes[start:end]), nil
}

// format replaces each {} with the next argument; {{ and }} are literal
// braces.
func format(args []value.Value) (value.Value, error) {
	template, err := asString(args, 0)
	if err != nil {
		return nil, err
	}
	rest := args[1:]

	var b strings.Builder
	next := 0
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{' && i+1 < len(template) && template[i+1] == '}':
			if next >= len(rest) {
				return nil, fmt.Errorf("%w: format has more placeholders than arguments", ErrBadArgument)
			}
			b.WriteString(value.Stringify(rest[next]))
			next++
			i++
		case c == '{' || c == '}':
			return nil, fmt.Errorf("%w: unmatched %q at offset %d in format", ErrBadArgument, c, i)
		default:
			b.WriteByte(c)
		}
	}
	if next != len(rest) {
		return nil, fmt.Errorf("%w: format has %d placeholders but %d arguments", ErrBadArgument, next, len(rest))
	}
	return value.String(b.String()), nil
}

// findNeedles returns the distinct needles occurring in the haystack in order
// of first occurrence.
func findNeedles(args []value.Value, firstOnly bool) ([]string, error) {
	haystack, err := asString(args, 0)
	if err != nil {
		return nil, err
	}
	needles, err := asStrings(args, 1)
	if err != nil {
		return nil, err
	}

	nonEmpty := make([]string, 0, len(needles))
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		if strings.Contains(needle, needleSeparator) {
			return nil, fmt.Errorf("%w: needles must not contain NUL", ErrBadArgument)
		}
		nonEmpty = append(nonEmpty, needle)
	}
	if len(nonEmpty) == 0 {
		return nil, nil
	}

	automaton, err := automata.Get(strings.Join(nonEmpty, needleSeparator))
	if err != nil {
		return nil, err
	}

	var found []string
	seen := make(map[string]struct{})
	for _, m := range automaton.FindAll(haystack) {
		needle := nonEmpty[m.Pattern()]
		if _, dup := seen[needle]; dup {
			continue
		}
		seen[needle] = struct{}{}
		found = append(found, needle)
		if firstOnly {
			break
		}
	}
	return found, nil
}
