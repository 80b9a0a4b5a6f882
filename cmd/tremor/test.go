package main

import (
	"github.com/spf13/cobra"

	"github.com/mfelsche/tremor-runtime/internal/exit"
	"github.com/mfelsche/tremor-runtime/internal/suite"
)

type testOptions struct {
	*rootOptions
	parallel int
}

func newTestCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &testOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <suite.yaml>...",
		Short: "Run YAML test suites",
		Long: `Run YAML test suites. Each suite names a script and a list of cases,
each running one event and checking the outcome.

Examples:
  tremor test tests/classify.yaml
  tremor test --parallel 4 tests/*.yaml
  tremor test --report json tests/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 1, "number of suites run at once")

	return cmd
}

func (o *testOptions) run(cmd *cobra.Command, paths []string) error {
	summary, err := suite.RunFiles(cmd.Context(), paths, suite.Options{
		Imports:  o.cfg.Imports,
		Parallel: o.parallel,
		Logger:   o.logger,
	})
	if err != nil {
		return exit.Errorf("Error: %v\n", err)
	}

	if err := summary.Format(o.format, cmd.OutOrStdout()); err != nil {
		return exit.Errorf("Error: failed to write report: %v\n", err)
	}
	if summary.Failed() {
		return exit.Failure("")
	}
	return nil
}
