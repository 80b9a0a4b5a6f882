package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/pkg/script"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "json", want: FormatJSON},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("format_"+tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Fatalf("ParseFormat(%q) error = %v, want %v", tt.in, err, ErrUnknownFormat)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseFormat(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func sampleStats() *RunStats {
	var stats RunStats
	for range 1200 {
		stats.Add(script.Outcome{Kind: script.Emit, Port: "out"})
	}
	stats.Add(script.Outcome{Kind: script.Emit, Port: "err"})
	stats.Add(script.Outcome{Kind: script.Drop})
	stats.Add(script.Outcome{
		Kind: script.Error,
		Err:  diagnostics.Runtimef(diagnostics.CodeTypeMismatch, diagnostics.Span{}, "bad"),
	})
	stats.Duration = 2 * time.Second
	return &stats
}

func TestRunStatsAdd(t *testing.T) {
	t.Parallel()

	stats := sampleStats()
	if stats.Events != 1203 || stats.Emitted != 1201 || stats.Dropped != 1 || stats.Errors != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Ports["out"] != 1200 || stats.Ports["err"] != 1 {
		t.Fatalf("Ports = %v", stats.Ports)
	}
	if stats.Codes[diagnostics.CodeTypeMismatch] != 1 {
		t.Fatalf("Codes = %v", stats.Codes)
	}
	if got := stats.EventsPerSecond(); got != 601.5 {
		t.Fatalf("EventsPerSecond() = %v, want 601.5", got)
	}
}

func TestRunStatsMerge(t *testing.T) {
	t.Parallel()

	var total RunStats
	total.Merge(*sampleStats())
	total.Merge(*sampleStats())
	if total.Events != 2406 || total.Ports["out"] != 2400 || total.Codes[diagnostics.CodeTypeMismatch] != 2 {
		t.Fatalf("merged = %+v", total)
	}
	if total.Duration != 0 {
		t.Fatalf("Duration = %v, want it left to the caller", total.Duration)
	}
}

func TestRunStatsText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := sampleStats().Format(FormatText, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Events:   1,203 (601.5/s)",
		"Emitted:  1,201",
		"Ports:    err=1 out=1,200",
		"  type_mismatch: 1",
		"Duration: 2000 ms",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestRunStatsJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := sampleStats().Format(FormatJSON, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	var got runStatsJSON
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got.Events != 1203 || got.Codes["type_mismatch"] != 1 || got.DurationMS != 2000 {
		t.Fatalf("json = %+v", got)
	}
}

func TestEmptyRunStats(t *testing.T) {
	t.Parallel()

	var stats RunStats
	if stats.EventsPerSecond() != 0 || stats.percentage(0) != 0 {
		t.Fatal("empty stats must not divide by zero")
	}
	var buf bytes.Buffer
	if err := stats.Format(FormatText, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.Contains(buf.String(), "Ports:") {
		t.Fatalf("empty stats printed ports:\n%s", buf.String())
	}
}

func sampleSummary() *Summary {
	summary := NewSummary(2)
	summary.Add(SuiteResult{
		Path: "classify.yaml",
		Name: "classification",
		Cases: []CaseResult{
			NewCaseResultBuilder("app2_is_classified").WithDuration(time.Millisecond).Build(),
			NewCaseResultBuilder("debug_is_dropped").Failf("kind: got %s, want %s", "emit", "drop").Build(),
		},
		Duration: 3 * time.Millisecond,
	})
	summary.Add(SuiteResult{Path: "broken.yaml", Err: errors.New("compile error")})
	summary.SetTotalDuration(5 * time.Millisecond)
	return summary
}

func TestSummary(t *testing.T) {
	t.Parallel()

	summary := sampleSummary()
	if summary.Cases() != 2 || summary.PassedCases != 1 || summary.FailedCases != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.FailedSuites != 2 || !summary.Failed() {
		t.Fatalf("FailedSuites = %d, want 2", summary.FailedSuites)
	}
	if got := summary.PassPercentage(); got != 50 {
		t.Fatalf("PassPercentage() = %v, want 50", got)
	}

	passing := NewSummary(1)
	passing.Add(SuiteResult{Path: "ok.yaml", Cases: []CaseResult{{Name: "a"}}})
	if passing.Failed() {
		t.Fatal("a suite with only passing cases failed")
	}
}

func TestCaseResultBuilderCopiesFailures(t *testing.T) {
	t.Parallel()

	b := NewCaseResultBuilder("c").Failf("first")
	first := b.Build()
	b.Failf("second")
	if len(first.Failures) != 1 {
		t.Fatalf("built result changed after further failures: %v", first.Failures)
	}
}

func TestSummaryText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := sampleSummary().Format(FormatText, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"classify.yaml (classification): 2 case(s) in 3 ms",
		"  ok   app2_is_classified",
		"  FAIL debug_is_dropped",
		"       kind: got emit, want drop",
		"broken.yaml: Failed: compile error",
		"Suites:   2 (2 failed)",
		"Passed:   1 (50.0%)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := sampleSummary().Format(FormatJSON, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	var got summaryJSON
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got.Suites) != 2 || got.Suites[1].Error != "compile error" || got.Suites[0].Cases[1].Passed {
		t.Fatalf("json = %+v", got)
	}
}
