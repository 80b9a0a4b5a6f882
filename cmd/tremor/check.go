package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfelsche/tremor-runtime/internal/exit"
	"github.com/mfelsche/tremor-runtime/internal/report"
	"github.com/mfelsche/tremor-runtime/pkg/script"
)

type checkOptions struct {
	*rootOptions
	canonical bool
}

type diagnosticJSON struct {
	Stage   string `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type checkJSON struct {
	Script      string           `json:"script"`
	OK          bool             `json:"ok"`
	Diagnostics []diagnosticJSON `json:"diagnostics"`
}

func newCheckCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &checkOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <script>...",
		Short: "Compile scripts and report diagnostics",
		Long: `Compile each script and print its diagnostics with a source excerpt.

Examples:
  tremor check classify.tremor
  tremor check --format classify.tremor
  tremor check --report json -i threshold=10 classify.tremor`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.canonical, "format", false, "print the canonical formatting of each valid script")

	return cmd
}

func (o *checkOptions) run(cmd *cobra.Command, paths []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	results := make([]checkJSON, 0, len(paths))

	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			return exit.Usagef("Error: failed to read script: %v\n", err)
		}
		_, compileErr := script.Compile(string(source), script.WithImports(o.cfg.Imports))
		if compileErr != nil {
			failed++
			o.logger.Debug("compile failed", "script", path, "error", compileErr)
		}

		switch {
		case o.format == report.FormatJSON:
			results = append(results, checkResult(path, compileErr))
		case compileErr != nil:
			fmt.Fprint(cmd.ErrOrStderr(), script.Render(string(source), compileErr))
		case o.canonical:
			formatted, err := script.Format(string(source))
			if err != nil {
				return exit.Errorf("Error: %v\n", err)
			}
			if !strings.HasSuffix(formatted, "\n") {
				formatted += "\n"
			}
			fmt.Fprint(out, formatted)
		default:
			fmt.Fprintf(out, "%s: ok\n", path)
		}
	}

	if o.format == report.FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return exit.Errorf("Error: failed to write report: %v\n", err)
		}
	}
	if failed > 0 {
		return exit.Errorf("%d of %d script(s) failed to compile\n", failed, len(paths))
	}
	return nil
}

func checkResult(path string, err error) checkJSON {
	result := checkJSON{Script: path, OK: err == nil, Diagnostics: []diagnosticJSON{}}
	for _, d := range script.Diagnostics(err) {
		span := d.Span()
		result.Diagnostics = append(result.Diagnostics, diagnosticJSON{
			Stage:   string(d.Stage()),
			Code:    string(d.Code()),
			Message: d.Message(),
			Line:    span.Start.Line,
			Column:  span.Start.Column,
		})
	}
	return result
}
