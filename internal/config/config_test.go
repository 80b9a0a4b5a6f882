package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	script := writeFile(t, dir, "classify.tremor", "event")
	events := writeFile(t, dir, "events.json", "{}\n")

	valid := func() *Config {
		cfg := Default()
		cfg.Script = script
		cfg.Inputs = []string{events, "-"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no_script", mutate: func(c *Config) { c.Script = "" }, wantErr: ErrNoScript},
		{name: "missing_script", mutate: func(c *Config) { c.Script = filepath.Join(dir, "nope.tremor") }, wantErr: os.ErrNotExist},
		{name: "missing_input", mutate: func(c *Config) { c.Inputs = []string{filepath.Join(dir, "nope.json")} }, wantErr: os.ErrNotExist},
		{name: "bad_input_format", mutate: func(c *Config) { c.InputFormat = "csv" }, wantErr: ErrInvalidInputFormat},
		{name: "bad_output_format", mutate: func(c *Config) { c.OutputFormat = "xml" }, wantErr: ErrInvalidOutputFormat},
		{name: "zero_workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: ErrInvalidWorkers},
		{name: "negative_rate", mutate: func(c *Config) { c.RateLimit = -1 }, wantErr: ErrInvalidRateLimit},
		{name: "yaml_input", mutate: func(c *Config) { c.InputFormat = InputYAML }},
		{name: "json_output", mutate: func(c *Config) { c.OutputFormat = OutputJSON }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "tremor.yaml", `
script: classify.tremor
inputs: [a.json, "-", /var/log/c.json]
input_format: yaml
output_format: json
with_meta: true
workers: 4
rate_limit: 2.5
hostname: node-7
imports:
  limit: 10
  apps:
    - app1
    - app2
`)

	cfg := Default()
	cfg.Instance = "kept"
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Script != filepath.Join(dir, "classify.tremor") || cfg.InputFormat != InputYAML || cfg.OutputFormat != OutputJSON {
		t.Fatalf("LoadFile() = %+v", cfg)
	}
	if want := []string{filepath.Join(dir, "a.json"), "-", "/var/log/c.json"}; !slices.Equal(cfg.Inputs, want) {
		t.Fatalf("Inputs = %q, want %q", cfg.Inputs, want)
	}
	if !cfg.WithMeta || cfg.Workers != 4 || cfg.RateLimit != 2.5 || cfg.Hostname != "node-7" {
		t.Fatalf("LoadFile() = %+v", cfg)
	}
	if cfg.Instance != "kept" {
		t.Fatalf("Instance = %q, want the value set before loading", cfg.Instance)
	}
	if !value.Equal(cfg.Imports["limit"], value.Int(10)) {
		t.Fatalf("Imports[limit] = %v", cfg.Imports["limit"])
	}
	if !value.Equal(cfg.Imports["apps"], value.Array{value.String("app1"), value.String("app2")}) {
		t.Fatalf("Imports[apps] = %v", cfg.Imports["apps"])
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if err := Default().LoadFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadFile(missing) error = %v, want not exist", err)
	}

	unknown := writeFile(t, dir, "unknown.yaml", "scirpt: typo.tremor\n")
	if err := Default().LoadFile(unknown); err == nil {
		t.Fatal("LoadFile() with an unknown key expected error")
	}
}

func TestParseImports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pairs   []string
		want    map[string]value.Value
		wantErr error
	}{
		{name: "json_number", pairs: []string{"limit=10"}, want: map[string]value.Value{"limit": value.Int(10)}},
		{name: "json_record", pairs: []string{`cfg={"a":true}`}, want: map[string]value.Value{"cfg": value.ObjectOf(value.Field{Key: "a", Value: value.Bool(true)})}},
		{name: "bare_word_is_string", pairs: []string{"env=prod"}, want: map[string]value.Value{"env": value.String("prod")}},
		{name: "value_may_contain_equals", pairs: []string{"expr=a=b"}, want: map[string]value.Value{"expr": value.String("a=b")}},
		{name: "later_wins", pairs: []string{"a=1", "a=2"}, want: map[string]value.Value{"a": value.Int(2)}},
		{name: "missing_equals", pairs: []string{"limit"}, wantErr: ErrInvalidImportFormat},
		{name: "empty_name", pairs: []string{" =1"}, wantErr: ErrEmptyImportName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseImports(tt.pairs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseImports() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseImports() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseImports() = %v, want %v", got, tt.want)
			}
			for name, want := range tt.want {
				if !value.Equal(got[name], want) {
					t.Fatalf("ParseImports()[%s] = %v, want %v", name, got[name], want)
				}
			}
		})
	}
}

func TestAddImportsOnZeroConfig(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.AddImports(map[string]value.Value{"a": value.Int(1)})
	if !value.Equal(cfg.Imports["a"], value.Int(1)) {
		t.Fatalf("Imports = %v", cfg.Imports)
	}
}
