// Package suite runs YAML test suites against scripts.
//
// A suite names a script (a path relative to the suite file, or inline
// source) and a list of cases. Each case runs one event and checks the
// outcome against its expectation:
//
//	name: classification
//	script: classify.tremor
//	imports:
//	  threshold: 10
//	cases:
//	  - name: app2_is_classified
//	    event: {application: app2}
//	    expect:
//	      meta: {classification: applog_app2, rate: 2500}
//	  - name: debug_is_dropped
//	    event: {level: debug}
//	    expect:
//	      kind: drop
package suite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/mfelsche/tremor-runtime/internal/pathing"
	"github.com/mfelsche/tremor-runtime/internal/yamlvalue"
	"github.com/mfelsche/tremor-runtime/pkg/script"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

var (
	ErrNoScript      = errors.New("suite needs exactly one of script or source")
	ErrNoCases       = errors.New("suite has no cases")
	ErrUnnamedCase   = errors.New("case has no name")
	ErrDuplicateCase = errors.New("duplicate case name")
	ErrInvalidKind   = errors.New("expected kind must be one of: emit, drop, error")
	ErrInvalidMeta   = errors.New("meta must be a record")
	ErrInvalidNow    = errors.New("context now must be an RFC 3339 timestamp")
)

// Suite is a parsed suite file.
type Suite struct {
	Name string `yaml:"name"`
	// Script is a path relative to the suite file.
	Script  string                     `yaml:"script"`
	Source  string                     `yaml:"source"`
	Imports map[string]yamlvalue.Value `yaml:"imports"`
	Context ContextSpec                `yaml:"context"`
	Cases   []Case                     `yaml:"cases"`

	// path is where the suite was loaded from; empty for Parse.
	path string
}

// ContextSpec pins the host facts a case sees.
type ContextSpec struct {
	Hostname string `yaml:"hostname"`
	Instance string `yaml:"instance"`
	// Now fixes system::now and friends, RFC 3339.
	Now string `yaml:"now"`
}

type Case struct {
	Name   string           `yaml:"name"`
	Event  *yamlvalue.Value `yaml:"event"`
	Meta   *yamlvalue.Value `yaml:"meta"`
	Origin string           `yaml:"origin"`
	Expect Expectation      `yaml:"expect"`
}

// Expectation lists the checks of a case. Unset fields are not checked.
// Kind defaults to error when Error is set and to emit otherwise.
type Expectation struct {
	Kind    string           `yaml:"kind"`
	Port    string           `yaml:"port"`
	Value   *yamlvalue.Value `yaml:"value"`
	Meta    *yamlvalue.Value `yaml:"meta"`
	Reason  *yamlvalue.Value `yaml:"reason"`
	Error   string           `yaml:"error"`
	Exports *yamlvalue.Value `yaml:"exports"`
}

func (e Expectation) kind() string {
	switch {
	case e.Kind != "":
		return e.Kind
	case e.Error != "":
		return script.Error.String()
	default:
		return script.Emit.String()
	}
}

// Load reads and validates the suite at path. A script path is resolved
// against the suite's directory and read immediately.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}
	s.path = path

	if s.Script != "" {
		scriptPath := pathing.Resolve(s.Script, filepath.Dir(path))
		source, err := os.ReadFile(scriptPath)
		if err != nil {
			return nil, fmt.Errorf("suite %s: failed to read script: %w", path, err)
		}
		s.Source = string(source)
	}
	return s, nil
}

// Parse decodes and validates a suite document. Unknown keys are errors.
func Parse(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.UnmarshalWithOptions(data, &s, yaml.Strict()); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Suite) validate() error {
	if (s.Script == "") == (s.Source == "") {
		return ErrNoScript
	}
	if len(s.Cases) == 0 {
		return ErrNoCases
	}
	if s.Context.Now != "" {
		if _, err := time.Parse(time.RFC3339, s.Context.Now); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidNow, s.Context.Now)
		}
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d: %w", i, ErrUnnamedCase)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateCase, c.Name)
		}
		seen[c.Name] = true

		switch c.Expect.kind() {
		case script.Emit.String(), script.Drop.String(), script.Error.String():
		default:
			return fmt.Errorf("case %s: %w: %q", c.Name, ErrInvalidKind, c.Expect.Kind)
		}
		if c.Meta != nil {
			if _, ok := c.Meta.Get().(*value.Object); !ok {
				return fmt.Errorf("case %s: %w", c.Name, ErrInvalidMeta)
			}
		}
	}
	return nil
}

// Path is the file the suite was loaded from.
func (s *Suite) Path() string {
	return s.path
}

func (s *Suite) imports() map[string]value.Value {
	out := make(map[string]value.Value, len(s.Imports))
	for name, v := range s.Imports {
		out[name] = v.Get()
	}
	return out
}

func (s *Suite) context() script.Context {
	ctx := script.Context{Hostname: s.Context.Hostname, Instance: s.Context.Instance}
	if s.Context.Now != "" {
		now, _ := time.Parse(time.RFC3339, s.Context.Now)
		ctx.Now = func() time.Time { return now }
	}
	return ctx
}
