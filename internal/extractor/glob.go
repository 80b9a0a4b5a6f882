package extractor

import (
	"regexp"
	"strings"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func compileGlob(body string) (matchFn, error) {
	expr, err := globToRegexp(body)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, invalidf("glob %q: %v", body, err)
	}
	return func(input string) Result {
		if !re.MatchString(input) {
			return NoMatch
		}
		return matched(value.String(input))
	}, nil
}

// globToRegexp translates shell wildcards into an anchored RE2 expression:
// * matches any run, ? a single character, [...] a class ([!...] negated)
// and a backslash escapes the next character.
func globToRegexp(glob string) (string, error) {
	var b strings.Builder
	b.WriteString(`(?s)\A`)

	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '\\':
			if i+1 == len(runes) {
				return "", invalidf("glob %q ends with a dangling escape", glob)
			}
			i++
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		case '[':
			end := i + 1
			if end < len(runes) && (runes[end] == '!' || runes[end] == '^') {
				end++
			}
			// A leading ] is part of the class.
			if end < len(runes) && runes[end] == ']' {
				end++
			}
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end == len(runes) {
				return "", invalidf("glob %q has an unclosed character class", glob)
			}
			class := runes[i+1 : end]
			b.WriteByte('[')
			if class[0] == '!' || class[0] == '^' {
				b.WriteByte('^')
				class = class[1:]
			}
			for _, c := range class {
				if c == '\\' || c == '[' || c == ']' {
					b.WriteByte('\\')
				}
				b.WriteRune(c)
			}
			b.WriteByte(']')
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	b.WriteString(`\z`)
	return b.String(), nil
}
