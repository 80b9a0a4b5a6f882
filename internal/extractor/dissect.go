package extractor

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

var dissectLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Field", Pattern: `%\{[^}]*\}`},
	{Name: "Text", Pattern: `[^%]+`},
	{Name: "Percent", Pattern: `%`},
})

type dissectGrammar struct {
	Tokens []*dissectToken `parser:"@@*"`
}

type dissectToken struct {
	Field *string `parser:"  @Field"`
	Text  *string `parser:"| @(Text | Percent)"`
}

var dissectParser = participle.MustBuild[dissectGrammar](participle.Lexer(dissectLexer))

type dissectMode int

const (
	dissectSet dissectMode = iota
	dissectSkip
	dissectAppend
	dissectIndirect
)

type dissectField struct {
	name    string
	mode    dissectMode
	padded  bool
	convert string
}

// dissectItem is either literal text or a field.
type dissectItem struct {
	text  string
	field *dissectField
}

func compileDissect(body string) (matchFn, error) {
	items, err := parseDissect(body)
	if err != nil {
		return nil, err
	}
	return func(input string) Result {
		return runDissect(items, input)
	}, nil
}

func parseDissect(body string) ([]dissectItem, error) {
	grammar, err := dissectParser.ParseString("", body)
	if err != nil {
		return nil, invalidf("dissect %q: %v", body, err)
	}

	var items []dissectItem
	for _, tok := range grammar.Tokens {
		if tok.Text != nil {
			if n := len(items); n > 0 && items[n-1].field == nil {
				items[n-1].text += *tok.Text
				continue
			}
			items = append(items, dissectItem{text: *tok.Text})
			continue
		}

		field, err := parseDissectField(*tok.Field)
		if err != nil {
			return nil, invalidf("dissect %q: %v", body, err)
		}
		if n := len(items); n > 0 && items[n-1].field != nil {
			return nil, invalidf("dissect %q: fields %s and %s need a delimiter between them", body, items[n-1].field.name, *tok.Field)
		}
		items = append(items, dissectItem{field: field})
	}

	for _, item := range items {
		if item.field == nil && strings.Contains(item.text, "%{") {
			return nil, invalidf("dissect %q: unclosed field", body)
		}
	}
	return items, nil
}

// parseDissectField decodes the inside of %{...}.
func parseDissectField(raw string) (*dissectField, error) {
	spec := strings.TrimSuffix(strings.TrimPrefix(raw, "%{"), "}")
	field := &dissectField{}

	if spec == "" {
		field.mode = dissectSkip
		return field, nil
	}

	switch spec[0] {
	case '?':
		field.mode = dissectSkip
		spec = spec[1:]
	case '+':
		field.mode = dissectAppend
		spec = spec[1:]
	case '&':
		field.mode = dissectIndirect
		spec = spec[1:]
	}

	if trimmed, ok := strings.CutSuffix(spec, "->"); ok {
		field.padded = true
		spec = trimmed
	}
	if name, convert, ok := strings.Cut(spec, ":"); ok {
		if convert != "int" && convert != "float" {
			return nil, invalidf("unknown conversion %q in %s", convert, raw)
		}
		field.convert = convert
		spec = name
	}
	if trimmed, ok := strings.CutSuffix(spec, "->"); ok {
		field.padded = true
		spec = trimmed
	}

	if spec == "" && field.mode != dissectSkip {
		return nil, invalidf("field %s has no name", raw)
	}
	field.name = spec
	return field, nil
}

func runDissect(items []dissectItem, input string) Result {
	out := value.NewObject(len(items))
	captured := make(map[string]string, len(items))
	pos := 0
	padded := false

	for i, item := range items {
		if item.field == nil {
			if !strings.HasPrefix(input[pos:], item.text) {
				return NoMatch
			}
			pos += len(item.text)
			if padded {
				for item.text != "" && strings.HasPrefix(input[pos:], item.text) {
					pos += len(item.text)
				}
			}
			padded = false
			continue
		}

		var raw string
		if i+1 < len(items) {
			idx := strings.Index(input[pos:], items[i+1].text)
			if idx < 0 {
				return NoMatch
			}
			raw = input[pos : pos+idx]
			pos += idx
		} else {
			raw = input[pos:]
			pos = len(input)
		}
		padded = item.field.padded

		if !storeDissected(out, captured, item.field, raw) {
			return NoMatch
		}
	}

	if pos != len(input) {
		return NoMatch
	}
	return matched(out)
}

func storeDissected(out *value.Object, captured map[string]string, field *dissectField, raw string) bool {
	switch field.mode {
	case dissectSkip:
		if field.name != "" {
			captured[field.name] = raw
		}
		return true
	case dissectIndirect:
		// %{&name} is keyed by whatever the field called name captured.
		key, ok := captured[field.name]
		if !ok {
			return false
		}
		out.Set(key, value.String(raw))
		return true
	case dissectAppend:
		captured[field.name] = raw
		if prev, ok := out.Get(field.name); ok {
			if s, isString := prev.(value.String); isString {
				out.Set(field.name, value.String(string(s)+" "+raw))
				return true
			}
		}
		out.Set(field.name, value.String(raw))
		return true
	}

	converted, ok := convertDissected(field.convert, raw)
	if !ok {
		return false
	}
	captured[field.name] = raw
	out.Set(field.name, converted)
	return true
}

func convertDissected(convert, raw string) (value.Value, bool) {
	switch convert {
	case "int":
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, false
		}
		return value.Int(n), true
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, false
		}
		return value.Float(f), true
	default:
		return value.String(raw), true
	}
}
