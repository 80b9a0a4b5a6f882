package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

const rule = "--------------------------------------------------------------------------------"

// Format writes the run statistics to w.
func (s *RunStats) Format(format Format, w io.Writer) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s.jsonView())
	default:
		return s.formatText(w)
	}
}

func (s *RunStats) formatText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Events:   %s (%s/s)\n", humanize.Comma(s.Events), humanize.CommafWithDigits(s.EventsPerSecond(), 2)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Emitted:  %s (%.1f%%)\n", humanize.Comma(s.Emitted), s.percentage(s.Emitted)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Dropped:  %s (%.1f%%)\n", humanize.Comma(s.Dropped), s.percentage(s.Dropped)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Errors:   %s (%.1f%%)\n", humanize.Comma(s.Errors), s.percentage(s.Errors)); err != nil {
		return err
	}
	if len(s.Ports) > 0 {
		ports := make([]string, 0, len(s.Ports))
		for _, port := range sortedKeys(s.Ports) {
			ports = append(ports, port+"="+humanize.Comma(s.Ports[port]))
		}
		if _, err := fmt.Fprintf(w, "Ports:    %s\n", strings.Join(ports, " ")); err != nil {
			return err
		}
	}
	for _, code := range sortedKeys(s.Codes) {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", code, humanize.Comma(s.Codes[code])); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Duration: %d ms\n", s.Duration.Milliseconds()); err != nil {
		return err
	}
	return nil
}

type runStatsJSON struct {
	Events          int64            `json:"events"`
	Emitted         int64            `json:"emitted"`
	Dropped         int64            `json:"dropped"`
	Errors          int64            `json:"errors"`
	Ports           map[string]int64 `json:"ports,omitempty"`
	Codes           map[string]int64 `json:"error_codes,omitempty"`
	DurationMS      int64            `json:"duration_ms"`
	EventsPerSecond float64          `json:"events_per_second"`
}

func (s *RunStats) jsonView() runStatsJSON {
	view := runStatsJSON{
		Events:          s.Events,
		Emitted:         s.Emitted,
		Dropped:         s.Dropped,
		Errors:          s.Errors,
		Ports:           s.Ports,
		DurationMS:      s.Duration.Milliseconds(),
		EventsPerSecond: s.EventsPerSecond(),
	}
	if len(s.Codes) > 0 {
		view.Codes = make(map[string]int64, len(s.Codes))
		for code, n := range s.Codes {
			view.Codes[string(code)] = n
		}
	}
	return view
}

// Format writes the suite summary to w.
func (s *Summary) Format(format Format, w io.Writer) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s.jsonView())
	default:
		return s.formatText(w)
	}
}

func (s *Summary) formatText(w io.Writer) error {
	for _, suite := range s.Suites {
		if err := formatSuiteText(w, suite); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, rule); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Suites:   %s (%s failed)\n", humanize.Comma(int64(len(s.Suites))), humanize.Comma(int64(s.FailedSuites))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Passed:   %s (%.1f%%)\n", humanize.Comma(int64(s.PassedCases)), s.PassPercentage()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Failed:   %s\n", humanize.Comma(int64(s.FailedCases))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Duration: %d ms\n", s.TotalDuration.Milliseconds()); err != nil {
		return err
	}
	return nil
}

func formatSuiteText(w io.Writer, suite SuiteResult) error {
	title := suite.Path
	if suite.Name != "" {
		title = fmt.Sprintf("%s (%s)", suite.Path, suite.Name)
	}
	if suite.Err != nil {
		_, err := fmt.Fprintf(w, "%s: Failed: %v\n", title, suite.Err)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s: %d case(s) in %d ms\n", title, len(suite.Cases), suite.Duration.Milliseconds()); err != nil {
		return err
	}
	for _, c := range suite.Cases {
		status := "ok  "
		if !c.Passed() {
			status = "FAIL"
		}
		if _, err := fmt.Fprintf(w, "  %s %s\n", status, c.Name); err != nil {
			return err
		}
		for _, failure := range c.Failures {
			if _, err := fmt.Fprintf(w, "       %s\n", failure); err != nil {
				return err
			}
		}
	}
	return nil
}

type caseJSON struct {
	Name       string   `json:"name"`
	Passed     bool     `json:"passed"`
	Failures   []string `json:"failures,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

type suiteJSON struct {
	Path       string     `json:"path"`
	Name       string     `json:"name,omitempty"`
	Error      string     `json:"error,omitempty"`
	Cases      []caseJSON `json:"cases"`
	DurationMS int64      `json:"duration_ms"`
}

type summaryJSON struct {
	Suites       []suiteJSON `json:"suites"`
	Passed       int         `json:"passed"`
	Failed       int         `json:"failed"`
	FailedSuites int         `json:"failed_suites"`
	DurationMS   int64       `json:"duration_ms"`
}

func (s *Summary) jsonView() summaryJSON {
	view := summaryJSON{
		Suites:       make([]suiteJSON, 0, len(s.Suites)),
		Passed:       s.PassedCases,
		Failed:       s.FailedCases,
		FailedSuites: s.FailedSuites,
		DurationMS:   s.TotalDuration.Milliseconds(),
	}
	for _, suite := range s.Suites {
		sv := suiteJSON{
			Path:       suite.Path,
			Name:       suite.Name,
			Cases:      make([]caseJSON, 0, len(suite.Cases)),
			DurationMS: suite.Duration.Milliseconds(),
		}
		if suite.Err != nil {
			sv.Error = suite.Err.Error()
		}
		for _, c := range suite.Cases {
			sv.Cases = append(sv.Cases, caseJSON{
				Name:       c.Name,
				Passed:     c.Passed(),
				Failures:   c.Failures,
				DurationMS: c.Duration.Milliseconds(),
			})
		}
		view.Suites = append(view.Suites, sv)
	}
	return view
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
