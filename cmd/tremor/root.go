package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mfelsche/tremor-runtime/internal/config"
	"github.com/mfelsche/tremor-runtime/internal/exit"
	"github.com/mfelsche/tremor-runtime/internal/report"
	"github.com/mfelsche/tremor-runtime/pkg/script"
)

// rootOptions holds the flags shared by every command and the state
// prepared from them before a command runs.
type rootOptions struct {
	verbose    bool
	configPath string
	imports    []string
	reportFmt  string

	cfg    *config.Config
	format report.Format
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tremor",
		Short: "Compile, run and test event processing scripts",
		Long: `tremor compiles scripts that classify, transform and route events.

Exit codes:
  0 - success
  1 - compile errors, failed test cases or events that errored
  2 - usage errors (bad flags, unreadable files)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file; flags override its values")
	cmd.PersistentFlags().StringArrayVarP(&opts.imports, "import", "i", nil, "import value as name=json (repeatable)")
	cmd.PersistentFlags().StringVar(&opts.reportFmt, "report", string(report.FormatText), "summary format (text|json)")

	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newTestCommand(opts))

	return cmd
}

// prepare sets up logging and the configuration: defaults, then the config
// file, then --import values.
func (o *rootOptions) prepare(stderr io.Writer) error {
	format, err := report.ParseFormat(o.reportFmt)
	if err != nil {
		return exit.Usagef("Error: %v\n", err)
	}
	o.format = format

	cfg := config.Default()
	if o.configPath != "" {
		if err := cfg.LoadFile(o.configPath); err != nil {
			return exit.Usagef("Error: %v\n", err)
		}
	}
	imports, err := config.ParseImports(o.imports)
	if err != nil {
		return exit.Usagef("Error: %v\n", err)
	}
	cfg.AddImports(imports)
	if o.verbose {
		cfg.Verbose = true
	}
	o.cfg = cfg

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// compile reads and compiles the script at path. Compile errors are rendered
// against the source.
func (o *rootOptions) compile(path string) (*script.Script, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, exit.Usagef("Error: failed to read script: %v\n", err)
	}
	s, err := script.Compile(string(source), script.WithImports(o.cfg.Imports))
	if err != nil {
		o.logger.Debug("compile failed", "script", path, "diagnostics", len(script.Diagnostics(err)))
		return nil, exit.Errorf("%s: %d error(s)\n%s", path, len(script.Diagnostics(err)), script.Render(string(source), err))
	}
	o.logger.Debug("compiled", "script", path)
	return s, nil
}
