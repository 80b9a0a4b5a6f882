package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mfelsche/tremor-runtime/internal/config"
	"github.com/mfelsche/tremor-runtime/internal/exit"
	"github.com/mfelsche/tremor-runtime/internal/pathing"
	"github.com/mfelsche/tremor-runtime/internal/ratelimit"
	"github.com/mfelsche/tremor-runtime/internal/runner"
	"github.com/mfelsche/tremor-runtime/pkg/script"
)

type runOptions struct {
	*rootOptions
	inputFormat  string
	outputFormat string
	withMeta     bool
	workers      int
	rateLimit    float64
	hostname     string
	instance     string
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [script] [events...]",
		Short: "Run a script over a stream of events",
		Long: `Run a script over JSON-lines or YAML events read from files or stdin.

Emitted events are written to stdout, one per line. A summary of the run is
written to stderr. The script may come from --config instead of the first
argument; use - to read events from stdin explicitly.

Examples:
  tremor run classify.tremor events.json
  cat events.json | tremor run classify.tremor
  tremor run --workers 4 --rate-limit 1000 -o json classify.tremor events.json
  tremor run --config tremor.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.inputFormat, "input-format", config.InputJSON, "event format (json|yaml)")
	cmd.Flags().StringVarP(&opts.outputFormat, "output", "o", config.OutputText, "output format (text|json)")
	cmd.Flags().BoolVar(&opts.withMeta, "with-meta", false, "include event metadata in the output")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 1, "number of concurrent workers")
	cmd.Flags().Float64Var(&opts.rateLimit, "rate-limit", 0, "maximum events per second (0 = unlimited)")
	cmd.Flags().StringVar(&opts.hostname, "hostname", "", "hostname reported to scripts (default: this host)")
	cmd.Flags().StringVar(&opts.instance, "instance", "", "instance name reported to scripts")

	return cmd
}

// apply overrides the configuration with arguments and explicitly set flags.
func (o *runOptions) apply(cmd *cobra.Command, args []string) {
	cfg := o.cfg
	if len(args) > 0 {
		cfg.Script = args[0]
	}
	if len(args) > 1 {
		cfg.Inputs = args[1:]
	}

	flags := cmd.Flags()
	if flags.Changed("input-format") {
		cfg.InputFormat = o.inputFormat
	}
	if flags.Changed("output") {
		cfg.OutputFormat = o.outputFormat
	}
	if flags.Changed("with-meta") {
		cfg.WithMeta = o.withMeta
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = o.rateLimit
	}
	if flags.Changed("hostname") {
		cfg.Hostname = o.hostname
	}
	if flags.Changed("instance") {
		cfg.Instance = o.instance
	}
}

func (o *runOptions) run(cmd *cobra.Command, args []string) error {
	o.apply(cmd, args)
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return exit.Usagef("Error: %v\n", err)
	}

	s, err := o.compile(cfg.Script)
	if err != nil {
		return err
	}

	inputs, closeInputs, err := openInputs(cfg.Inputs, cmd.InOrStdin())
	if err != nil {
		return exit.Usagef("Error: %v\n", err)
	}
	defer closeInputs()

	r, err := runner.New(s, runner.Options{
		Workers:      cfg.Workers,
		InputFormat:  cfg.InputFormat,
		OutputFormat: cfg.OutputFormat,
		WithMeta:     cfg.WithMeta,
		Limiter:      ratelimit.New(cfg.RateLimit, 1),
		Context:      script.Context{Hostname: cfg.Hostname, Instance: cfg.Instance},
		Logger:       o.logger,
	})
	if err != nil {
		return exit.Usagef("Error: %v\n", err)
	}

	o.logger.Debug("running", "script", cfg.Script, "inputs", len(inputs), "workers", cfg.Workers, "rate_limit", cfg.RateLimit)
	stats, runErr := r.Run(cmd.Context(), inputs, cmd.OutOrStdout())

	if err := stats.Format(o.format, cmd.ErrOrStderr()); err != nil {
		return exit.Errorf("Error: failed to write summary: %v\n", err)
	}
	if runErr != nil {
		return exit.Errorf("Error: %v\n", runErr)
	}
	if stats.Errors > 0 {
		return exit.Failure("")
	}
	return nil
}

// openInputs opens every event file. No files, or "-", means stdin.
func openInputs(paths []string, stdin io.Reader) ([]runner.Input, func(), error) {
	if len(paths) == 0 {
		return []runner.Input{{Name: "stdin", Reader: stdin}}, func() {}, nil
	}

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	inputs := make([]runner.Input, 0, len(paths))
	for _, path := range paths {
		if path == pathing.Stdin {
			inputs = append(inputs, runner.Input{Name: "stdin", Reader: stdin})
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open events %s: %w", path, err)
		}
		files = append(files, f)
		inputs = append(inputs, runner.Input{Name: path, Reader: f})
	}
	return inputs, closeAll, nil
}
