// Package extractor compiles the kind|body| literals used in patterns into
// reusable matchers. Compiled extractors hold no mutable state and may be
// shared between goroutines.
package extractor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

// Sentinel errors returned by Compile. They support wrapping and can be
// checked with errors.Is.
var (
	// ErrUnknownKind indicates an extractor name that is not registered.
	ErrUnknownKind = errors.New("unknown extractor")

	// ErrInvalidPattern indicates a body the extractor could not compile,
	// such as a bad regex, CIDR or dissect pattern.
	ErrInvalidPattern = errors.New("invalid extractor pattern")
)

type Kind int

const (
	KindGlob Kind = iota
	KindCIDR
	KindRegex
	KindBase64
	KindDissect
	KindGrok
	KindDistance
	KindJumpHash
	KindJSON
	KindKV
)

var kindNames = map[string]Kind{
	"glob":     KindGlob,
	"cidr":     KindCIDR,
	"re":       KindRegex,
	"regex":    KindRegex,
	"base64":   KindBase64,
	"dissect":  KindDissect,
	"grok":     KindGrok,
	"distance": KindDistance,
	"jumphash": KindJumpHash,
	"json":     KindJSON,
	"kv":       KindKV,
}

func (k Kind) String() string {
	switch k {
	case KindGlob:
		return "glob"
	case KindCIDR:
		return "cidr"
	case KindRegex:
		return "re"
	case KindBase64:
		return "base64"
	case KindDissect:
		return "dissect"
	case KindGrok:
		return "grok"
	case KindDistance:
		return "distance"
	case KindJumpHash:
		return "jumphash"
	case KindJSON:
		return "json"
	case KindKV:
		return "kv"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind resolves an extractor name as written in a script.
func ParseKind(name string) (Kind, error) {
	kind, ok := kindNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q (known: %v)", ErrUnknownKind, name, Names())
	}
	return kind, nil
}

// Names lists every accepted extractor name, sorted.
func Names() []string {
	names := make([]string, 0, len(kindNames))
	for name := range kindNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result is the outcome of running an extractor. Value is only meaningful
// when Matched is true.
type Result struct {
	Matched bool
	Value   value.Value
}

// NoMatch is the Result of an extractor that did not apply.
var NoMatch = Result{}

func matched(v value.Value) Result {
	return Result{Matched: true, Value: v}
}

// matchFn runs a compiled extractor against a string input.
type matchFn func(input string) Result

type compileFn func(body string) (matchFn, error)

var registry = map[Kind]compileFn{
	KindGlob:     compileGlob,
	KindCIDR:     compileCIDR,
	KindRegex:    compileRegex,
	KindBase64:   compileBase64,
	KindDissect:  compileDissect,
	KindGrok:     compileGrok,
	KindDistance: compileDistance,
	KindJumpHash: compileJumpHash,
	KindJSON:     compileJSON,
	KindKV:       compileKV,
}

type Extractor struct {
	kind  Kind
	name  string
	body  string
	match matchFn
}

// Compile builds the extractor named by kind from its literal body.
func Compile(kind, body string) (*Extractor, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	match, err := registry[k](body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return &Extractor{kind: k, name: kind, body: body, match: match}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(kind, body string) *Extractor {
	e, err := Compile(kind, body)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Extractor) Kind() Kind   { return e.kind }
func (e *Extractor) Body() string { return e.body }

// String renders the extractor as its literal form.
func (e *Extractor) String() string {
	return e.name + "|" + e.body + "|"
}

// Extract runs the extractor. Every kind operates on strings; any other
// input does not match.
func (e *Extractor) Extract(v value.Value) Result {
	s, ok := v.(value.String)
	if !ok {
		return NoMatch
	}
	return e.match(string(s))
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPattern, fmt.Sprintf(format, args...))
}
