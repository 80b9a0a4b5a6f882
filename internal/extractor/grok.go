package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

// grokPatterns is the built-in pattern library. Definitions may refer to
// each other with %{NAME}.
var grokPatterns = map[string]string{
	"USERNAME":          `[a-zA-Z0-9._-]+`,
	"USER":              `%{USERNAME}`,
	"EMAILLOCALPART":    `[a-zA-Z0-9!#$%&'*+/=?^_{|}~-]+(?:\.[a-zA-Z0-9!#$%&'*+/=?^_{|}~-]+)*`,
	"EMAILADDRESS":      `%{EMAILLOCALPART}@%{HOSTNAME}`,
	"INT":               `[+-]?[0-9]+`,
	"BASE10NUM":         `[+-]?(?:[0-9]+(?:\.[0-9]+)?|\.[0-9]+)`,
	"NUMBER":            `%{BASE10NUM}`,
	"BASE16NUM":         `[+-]?(?:0x)?[0-9A-Fa-f]+`,
	"POSINT":            `[1-9][0-9]*`,
	"NONNEGINT":         `[0-9]+`,
	"WORD":              `\b\w+\b`,
	"NOTSPACE":          `\S+`,
	"SPACE":             `\s*`,
	"DATA":              `.*?`,
	"GREEDYDATA":        `.*`,
	"QUOTEDSTRING":      `"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`,
	"QS":                `%{QUOTEDSTRING}`,
	"UUID":              `[A-Fa-f0-9]{8}-(?:[A-Fa-f0-9]{4}-){3}[A-Fa-f0-9]{12}`,
	"MAC":               `(?:[A-Fa-f0-9]{2}[:-]){5}[A-Fa-f0-9]{2}`,
	"IPV4":              `(?:(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])`,
	"IPV6":              `[0-9A-Fa-f:]*:[0-9A-Fa-f:.]+`,
	"IP":                `%{IPV6}|%{IPV4}`,
	"HOSTNAME":          `\b[0-9A-Za-z][0-9A-Za-z-]{0,62}(?:\.[0-9A-Za-z][0-9A-Za-z-]{0,62})*\.?\b`,
	"HOST":              `%{HOSTNAME}`,
	"IPORHOST":          `%{IP}|%{HOSTNAME}`,
	"HOSTPORT":          `%{IPORHOST}:%{POSINT}`,
	"UNIXPATH":          `(?:/[\w_%!$@:.,+~-]*)+`,
	"PATH":              `%{UNIXPATH}`,
	"URIPROTO":          `[A-Za-z][A-Za-z0-9+\-.]*`,
	"URIPATH":           `(?:/[A-Za-z0-9$.+!*'(){},~:;=@#%&_\-]*)+`,
	"URIPARAM":          `\?[A-Za-z0-9$.+!*'|(){},~@#%&/=:;_?\-\[\]<>]*`,
	"URIPATHPARAM":      `%{URIPATH}(?:%{URIPARAM})?`,
	"URI":               `%{URIPROTO}://(?:%{USER}(?::[^@]*)?@)?(?:%{IPORHOST}(?::%{POSINT})?)?(?:%{URIPATHPARAM})?`,
	"MONTH":             `\b(?:[Jj]an(?:uary)?|[Ff]eb(?:ruary)?|[Mm]ar(?:ch)?|[Aa]pr(?:il)?|[Mm]ay|[Jj]un(?:e)?|[Jj]ul(?:y)?|[Aa]ug(?:ust)?|[Ss]ep(?:tember)?|[Oo]ct(?:ober)?|[Nn]ov(?:ember)?|[Dd]ec(?:ember)?)\b`,
	"MONTHNUM":          `0?[1-9]|1[0-2]`,
	"MONTHDAY":          `(?:0[1-9])|(?:[12][0-9])|(?:3[01])|[1-9]`,
	"DAY":               `(?:Mon(?:day)?|Tue(?:sday)?|Wed(?:nesday)?|Thu(?:rsday)?|Fri(?:day)?|Sat(?:urday)?|Sun(?:day)?)`,
	"YEAR":              `(?:\d\d){1,2}`,
	"HOUR":              `2[0123]|[01]?[0-9]`,
	"MINUTE":            `[0-5][0-9]`,
	"SECOND":            `(?:[0-5]?[0-9]|60)(?:[:.,][0-9]+)?`,
	"TIME":              `%{HOUR}:%{MINUTE}(?::%{SECOND})?`,
	"ISO8601_TIMEZONE":  `Z|[+-]%{HOUR}(?::?%{MINUTE})`,
	"TIMESTAMP_ISO8601": `%{YEAR}-%{MONTHNUM}-%{MONTHDAY}[T ]%{HOUR}:?%{MINUTE}(?::?%{SECOND})?(?:%{ISO8601_TIMEZONE})?`,
	"HTTPDATE":          `%{MONTHDAY}/%{MONTH}/%{YEAR}:%{TIME} %{INT}`,
	"SYSLOGTIMESTAMP":   `%{MONTH} +%{MONTHDAY} %{TIME}`,
	"SYSLOGPROG":        `%{PROG:program}(?:\[%{POSINT:pid}\])?`,
	"PROG":              `[\x21-\x5a\x5c\x5e-\x7e]+`,
	"SYSLOGHOST":        `%{IPORHOST}`,
	"LOGLEVEL":          `[Aa]lert|ALERT|[Tt]race|TRACE|[Dd]ebug|DEBUG|[Nn]otice|NOTICE|[Ii]nfo|INFO|[Ww]arn?(?:ing)?|WARN?(?:ING)?|[Ee]rr?(?:or)?|ERR?(?:OR)?|[Cc]rit?(?:ical)?|CRIT?(?:ICAL)?|[Ff]atal|FATAL|[Ss]evere|SEVERE|EMERG(?:ENCY)?|[Ee]merg(?:ency)?`,
}

var grokReference = regexp.MustCompile(`%\{(\w+)(?::([\w.@\[\]-]+))?(?::(int|float|string))?\}`)

const grokMaxDepth = 32

// grokCapture maps a generated named group back to the field it fills.
type grokCapture struct {
	group   string
	field   string
	convert string
}

type grokCompiler struct {
	definitions map[string]string
	captures    []grokCapture
}

func compileGrok(body string) (matchFn, error) {
	definitions, pattern, err := splitGrokBody(body)
	if err != nil {
		return nil, err
	}

	c := &grokCompiler{definitions: definitions}
	expr, err := c.expand(pattern, 0)
	if err != nil {
		return nil, invalidf("grok %q: %v", pattern, err)
	}
	re, err := regexp.Compile(`\A(?:` + expr + `)\z`)
	if err != nil {
		return nil, invalidf("grok %q: %v", pattern, err)
	}

	captures := c.captures
	indexes := make([]int, len(captures))
	for i, capture := range captures {
		indexes[i] = re.SubexpIndex(capture.group)
	}

	return func(input string) Result {
		loc := re.FindStringSubmatchIndex(input)
		if loc == nil {
			return NoMatch
		}
		out := value.NewObject(len(captures))
		for i, capture := range captures {
			start, end := loc[2*indexes[i]], loc[2*indexes[i]+1]
			if start < 0 {
				continue
			}
			converted, ok := convertDissected(capture.convert, input[start:end])
			if !ok {
				return NoMatch
			}
			out.Set(capture.field, converted)
		}
		return matched(out)
	}, nil
}

// splitGrokBody separates leading "NAME regex" definition lines from the
// pattern on the last non-empty line.
func splitGrokBody(body string) (map[string]string, string, error) {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
	}
	if len(lines) == 0 {
		return nil, "", invalidf("grok pattern is empty")
	}

	definitions := make(map[string]string, len(grokPatterns)+len(lines)-1)
	for name, expr := range grokPatterns {
		definitions[name] = expr
	}
	for _, line := range lines[:len(lines)-1] {
		name, expr, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok || !grokName.MatchString(name) {
			return nil, "", invalidf("grok definition %q: want NAME regex", line)
		}
		definitions[name] = strings.TrimSpace(expr)
	}
	return definitions, lines[len(lines)-1], nil
}

var grokName = regexp.MustCompile(`^\w+$`)

// expand replaces %{...} references. References carrying a field name
// become generated named groups, the others plain non-capturing groups.
func (c *grokCompiler) expand(pattern string, depth int) (string, error) {
	if depth > grokMaxDepth {
		return "", fmt.Errorf("pattern references nest deeper than %d", grokMaxDepth)
	}

	var b strings.Builder
	last := 0
	for _, m := range grokReference.FindAllStringSubmatchIndex(pattern, -1) {
		b.WriteString(pattern[last:m[0]])
		last = m[1]

		name := pattern[m[2]:m[3]]
		definition, ok := c.definitions[name]
		if !ok {
			return "", fmt.Errorf("unknown pattern %%{%s}", name)
		}
		inner, err := c.expand(definition, depth+1)
		if err != nil {
			return "", err
		}

		if m[4] < 0 {
			b.WriteString("(?:" + inner + ")")
			continue
		}
		capture := grokCapture{
			group: fmt.Sprintf("grok%d", len(c.captures)),
			field: pattern[m[4]:m[5]],
		}
		if m[6] >= 0 {
			capture.convert = pattern[m[6]:m[7]]
		}
		c.captures = append(c.captures, capture)
		b.WriteString("(?P<" + capture.group + ">" + inner + ")")
	}
	b.WriteString(pattern[last:])
	return b.String(), nil
}
