package suite

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mfelsche/tremor-runtime/internal/report"
	"github.com/mfelsche/tremor-runtime/internal/yamlvalue"
	"github.com/mfelsche/tremor-runtime/pkg/script"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

// Options configures suite runs.
type Options struct {
	// Imports are host defaults; a suite's own imports take precedence.
	Imports map[string]value.Value
	// Parallel bounds how many suites run at once. Below one means one.
	Parallel int
	Logger   *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// RunFiles loads and runs every suite file. Results keep the order of paths
// regardless of Parallel. Only cancellation is returned as an error; load
// and compile failures are reported on the suite result.
func RunFiles(ctx context.Context, paths []string, opts Options) (*report.Summary, error) {
	start := time.Now()
	results := make([]report.SuiteResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Parallel, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := Load(path)
			if err != nil {
				opts.logger().Error("suite not loaded", "suite", path, "error", err)
				results[i] = report.SuiteResult{Path: path, Err: err}
				return nil
			}
			results[i] = s.Run(ctx, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := report.NewSummary(len(paths))
	for _, result := range results {
		summary.Add(result)
	}
	summary.SetTotalDuration(time.Since(start))
	return summary, nil
}

// Run compiles the suite's script and runs every case. Cases stop early when
// ctx is done; the unrun cases are then missing from the result.
func (s *Suite) Run(ctx context.Context, opts Options) report.SuiteResult {
	logger := opts.logger().With("suite", s.displayName())
	start := time.Now()
	result := report.SuiteResult{Path: s.path, Name: s.Name}

	imports := make(map[string]value.Value, len(opts.Imports)+len(s.Imports))
	maps.Copy(imports, opts.Imports)
	maps.Copy(imports, s.imports())

	compiled, err := script.Compile(s.Source, script.WithImports(imports))
	if err != nil {
		logger.Error("script does not compile", "error", err)
		result.Err = fmt.Errorf("script does not compile: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	runCtx := s.context()
	for _, c := range s.Cases {
		if ctx.Err() != nil {
			break
		}
		caseStart := time.Now()
		b := report.NewCaseResultBuilder(c.Name)
		out := compiled.Run(c.event(), runCtx)
		c.Expect.check(b, out)
		caseResult := b.WithDuration(time.Since(caseStart)).Build()
		if caseResult.Passed() {
			logger.Debug("case passed", "case", c.Name)
		} else {
			logger.Debug("case failed", "case", c.Name, "failures", len(caseResult.Failures))
		}
		result.Cases = append(result.Cases, caseResult)
	}
	result.Duration = time.Since(start)
	return result
}

func (s *Suite) displayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.path
}

// event builds the case's input. A case without an event runs against an
// empty record.
func (c Case) event() *script.Event {
	ev := &script.Event{Value: value.NewObject(0), Origin: c.Origin}
	if c.Event != nil {
		ev.Value = c.Event.Get()
	}
	if c.Meta != nil {
		ev.Meta, _ = c.Meta.Get().(*value.Object)
	}
	return ev
}

func (e Expectation) check(b *report.CaseResultBuilder, out script.Outcome) {
	if got, want := out.Kind.String(), e.kind(); got != want {
		if out.Kind == script.Error {
			b.Failf("kind: got error (%v), want %s", out.Err, want)
		} else {
			b.Failf("kind: got %s, want %s", got, want)
		}
		return
	}

	if e.Error != "" {
		if got := script.CodeOf(out.Err); string(got) != e.Error {
			b.Failf("error: got %s (%v), want %s", got, out.Err, e.Error)
		}
	}
	if e.Port != "" && out.Port != e.Port {
		b.Failf("port: got %q, want %q", out.Port, e.Port)
	}
	checkValue(b, "value", out.Value, e.Value)
	checkValue(b, "reason", out.Reason, e.Reason)
	checkValue(b, "meta", objectOrEmpty(out.Meta), e.Meta)
	checkValue(b, "exports", objectOrEmpty(out.Exports), e.Exports)
}

func checkValue(b *report.CaseResultBuilder, what string, got value.Value, want *yamlvalue.Value) {
	if want == nil {
		return
	}
	if expected := want.Get(); !value.Equal(got, expected) {
		b.Failf("%s: got %s, want %s", what, value.Stringify(got), value.Stringify(expected))
	}
}

func objectOrEmpty(o *value.Object) value.Value {
	if o == nil {
		return value.NewObject(0)
	}
	return o
}
