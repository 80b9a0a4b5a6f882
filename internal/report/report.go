// Package report summarises batch runs and test suites.
package report

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/pkg/script"
)

// Format selects how summaries are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var ErrUnknownFormat = errors.New("unknown report format")

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// RunStats counts the outcomes of a batch run.
type RunStats struct {
	Events   int64
	Emitted  int64
	Dropped  int64
	Errors   int64
	Ports    map[string]int64
	Codes    map[diagnostics.Code]int64
	Duration time.Duration
}

// Add records one outcome.
func (s *RunStats) Add(out script.Outcome) {
	s.Events++
	switch out.Kind {
	case script.Emit:
		s.Emitted++
		if s.Ports == nil {
			s.Ports = make(map[string]int64)
		}
		s.Ports[out.Port]++
	case script.Drop:
		s.Dropped++
	default:
		s.Errors++
		if s.Codes == nil {
			s.Codes = make(map[diagnostics.Code]int64)
		}
		s.Codes[diagnostics.CodeOf(out.Err)]++
	}
}

// Merge folds other into s. Durations are not summed; the caller owns the
// wall clock of a run.
func (s *RunStats) Merge(other RunStats) {
	s.Events += other.Events
	s.Emitted += other.Emitted
	s.Dropped += other.Dropped
	s.Errors += other.Errors
	for port, n := range other.Ports {
		if s.Ports == nil {
			s.Ports = make(map[string]int64)
		}
		s.Ports[port] += n
	}
	for code, n := range other.Codes {
		if s.Codes == nil {
			s.Codes = make(map[diagnostics.Code]int64)
		}
		s.Codes[code] += n
	}
}

func (s *RunStats) EventsPerSecond() float64 {
	if s.Duration == 0 {
		return 0
	}
	return float64(s.Events) / s.Duration.Seconds()
}

func (s *RunStats) percentage(n int64) float64 {
	if s.Events == 0 {
		return 0
	}
	return float64(n) / float64(s.Events) * 100
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// CaseResult is the outcome of one suite case. A case passes when it has no
// failures.
type CaseResult struct {
	Name     string
	Failures []string
	Duration time.Duration
}

func (c CaseResult) Passed() bool {
	return len(c.Failures) == 0
}

type CaseResultBuilder struct {
	name     string
	failures []string
	duration time.Duration
}

func NewCaseResultBuilder(name string) *CaseResultBuilder {
	return &CaseResultBuilder{name: name}
}

func (b *CaseResultBuilder) Failf(format string, args ...any) *CaseResultBuilder {
	b.failures = append(b.failures, fmt.Sprintf(format, args...))
	return b
}

func (b *CaseResultBuilder) WithDuration(duration time.Duration) *CaseResultBuilder {
	b.duration = duration
	return b
}

func (b *CaseResultBuilder) Build() CaseResult {
	return CaseResult{
		Name:     b.name,
		Failures: slices.Clone(b.failures),
		Duration: b.duration,
	}
}

// SuiteResult is the outcome of one suite file. Err is set when the suite
// could not be loaded or its script did not compile; Cases is then empty.
type SuiteResult struct {
	Path     string
	Name     string
	Cases    []CaseResult
	Duration time.Duration
	Err      error
}

func (r SuiteResult) Failed() bool {
	if r.Err != nil {
		return true
	}
	return slices.ContainsFunc(r.Cases, func(c CaseResult) bool { return !c.Passed() })
}

// Summary aggregates suite results.
type Summary struct {
	Suites        []SuiteResult
	PassedCases   int
	FailedCases   int
	FailedSuites  int
	TotalDuration time.Duration
}

func NewSummary(expectedSuites int) *Summary {
	return &Summary{
		Suites: make([]SuiteResult, 0, expectedSuites),
	}
}

func (s *Summary) Add(result SuiteResult) {
	s.Suites = append(s.Suites, result)
	for _, c := range result.Cases {
		if c.Passed() {
			s.PassedCases++
		} else {
			s.FailedCases++
		}
	}
	if result.Failed() {
		s.FailedSuites++
	}
}

func (s *Summary) SetTotalDuration(duration time.Duration) {
	s.TotalDuration = duration
}

func (s *Summary) Cases() int {
	return s.PassedCases + s.FailedCases
}

func (s *Summary) Failed() bool {
	return s.FailedSuites > 0
}

func (s *Summary) PassPercentage() float64 {
	if s.Cases() == 0 {
		return 0
	}
	return float64(s.PassedCases) / float64(s.Cases()) * 100
}
