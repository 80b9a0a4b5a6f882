package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/mfelsche/tremor-runtime/internal/pathing"
	"github.com/mfelsche/tremor-runtime/internal/yamlvalue"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

const (
	InputJSON  = "json"
	InputYAML  = "yaml"
	OutputText = "text"
	OutputJSON = "json"
)

var (
	ErrNoScript            = errors.New("no script specified")
	ErrInvalidImportFormat = errors.New("import must be in format name=json")
	ErrEmptyImportName     = errors.New("import name cannot be empty")
	ErrInvalidInputFormat  = errors.New("input format must be one of: json, yaml")
	ErrInvalidOutputFormat = errors.New("output format must be one of: text, json")
	ErrInvalidWorkers      = errors.New("workers must be at least 1")
	ErrInvalidRateLimit    = errors.New("rate limit cannot be negative")
)

// Config is the runtime configuration of the tremor CLI.
type Config struct {
	Script string
	// Inputs are event files; stdin is read when empty.
	Inputs       []string
	InputFormat  string
	OutputFormat string
	// WithMeta includes the $ metadata of emitted events in the output.
	WithMeta  bool
	Workers   int
	RateLimit float64 // Events per second (0 = unlimited)
	Imports   map[string]value.Value

	Hostname string
	Instance string
	Verbose  bool
}

// Default returns the configuration used when neither a file nor flags
// override a setting.
func Default() *Config {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	return &Config{
		InputFormat:  InputJSON,
		OutputFormat: OutputText,
		Workers:      1,
		Imports:      make(map[string]value.Value),
		Hostname:     hostname,
		Instance:     "tremor",
	}
}

// File is the YAML config file layout. Absent keys leave the current
// setting alone.
type File struct {
	Script       *string                    `yaml:"script"`
	Inputs       []string                   `yaml:"inputs"`
	InputFormat  *string                    `yaml:"input_format"`
	OutputFormat *string                    `yaml:"output_format"`
	WithMeta     *bool                      `yaml:"with_meta"`
	Workers      *int                       `yaml:"workers"`
	RateLimit    *float64                   `yaml:"rate_limit"`
	Imports      map[string]yamlvalue.Value `yaml:"imports"`
	Hostname     *string                    `yaml:"hostname"`
	Instance     *string                    `yaml:"instance"`
}

// LoadFile applies the YAML config file at path to c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file File
	if err := yaml.UnmarshalWithOptions(data, &file, yaml.Strict()); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// script and inputs are relative to the config file
	dir := filepath.Dir(path)
	if file.Script != nil {
		script := pathing.Resolve(*file.Script, dir)
		file.Script = &script
	}
	file.Inputs = pathing.ResolveAll(file.Inputs, dir)

	c.apply(&file)
	return nil
}

func (c *Config) apply(f *File) {
	if f.Script != nil {
		c.Script = *f.Script
	}
	if len(f.Inputs) > 0 {
		c.Inputs = slices.Clone(f.Inputs)
	}
	if f.InputFormat != nil {
		c.InputFormat = *f.InputFormat
	}
	if f.OutputFormat != nil {
		c.OutputFormat = *f.OutputFormat
	}
	if f.WithMeta != nil {
		c.WithMeta = *f.WithMeta
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.RateLimit != nil {
		c.RateLimit = *f.RateLimit
	}
	if len(f.Imports) > 0 {
		imports := make(map[string]value.Value, len(f.Imports))
		for name, v := range f.Imports {
			imports[name] = v.Get()
		}
		c.AddImports(imports)
	}
	if f.Hostname != nil {
		c.Hostname = *f.Hostname
	}
	if f.Instance != nil {
		c.Instance = *f.Instance
	}
}

// ParseImports parses name=json pairs given on the command line. The value
// must be a JSON document; bare words are taken as strings.
func ParseImports(pairs []string) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w, got: %s", ErrInvalidImportFormat, pair)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, ErrEmptyImportName
		}

		v, err := value.FromJSON([]byte(raw))
		if err != nil {
			v = value.String(raw)
		}
		out[name] = v
	}
	return out, nil
}

// AddImports merges imports into c. Later values win.
func (c *Config) AddImports(imports map[string]value.Value) {
	if c.Imports == nil {
		c.Imports = make(map[string]value.Value, len(imports))
	}
	maps.Copy(c.Imports, imports)
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Script == "" {
		return ErrNoScript
	}
	if _, err := os.Stat(c.Script); err != nil {
		return fmt.Errorf("script file %s not found: %w", c.Script, err)
	}

	for _, file := range c.Inputs {
		if file == pathing.Stdin {
			continue
		}
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("input file %s not found: %w", file, err)
		}
	}

	switch c.InputFormat {
	case InputJSON, InputYAML:
	default:
		return fmt.Errorf("%w, got: %s", ErrInvalidInputFormat, c.InputFormat)
	}
	switch c.OutputFormat {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("%w, got: %s", ErrInvalidOutputFormat, c.OutputFormat)
	}

	if c.Workers < 1 {
		return fmt.Errorf("%w, got: %d", ErrInvalidWorkers, c.Workers)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w, got: %v", ErrInvalidRateLimit, c.RateLimit)
	}

	return nil
}
