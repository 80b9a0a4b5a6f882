package diagnostics

import (
	"fmt"
	"sort"
	"strings"
)

// Source maps byte offsets of a script to line/column locations.
type Source struct {
	text       string
	lineStarts []int
}

func NewSource(text string) *Source {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Source{text: text, lineStarts: starts}
}

func (s *Source) Text() string {
	return s.text
}

func (s *Source) Location(offset int) Location {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.text) {
		offset = len(s.text)
	}
	line := sort.Search(len(s.lineStarts), func(i int) bool {
		return s.lineStarts[i] > offset
	}) - 1
	return Location{
		Offset: offset,
		Line:   line + 1,
		Column: offset - s.lineStarts[line] + 1,
	}
}

func (s *Source) Span(start, end int) Span {
	return Span{Start: s.Location(start), End: s.Location(end)}
}

func (s *Source) line(n int) string {
	if n < 1 || n > len(s.lineStarts) {
		return ""
	}
	start := s.lineStarts[n-1]
	end := len(s.text)
	if n < len(s.lineStarts) {
		end = s.lineStarts[n] - 1
	}
	return strings.TrimRight(s.text[start:end], "\r")
}

// Render formats every diagnostic in err with the offending source line and
// a caret under the reported range.
func Render(source string, err error) string {
	src := NewSource(source)
	var b strings.Builder

	diagnostics := All(err)
	if len(diagnostics) == 0 && err != nil {
		return err.Error() + "\n"
	}

	for _, diagnostic := range diagnostics {
		fmt.Fprintf(&b, "%s\n", diagnostic.Error())
		span := diagnostic.Span()
		if span.IsZero() {
			continue
		}
		text := src.line(span.Start.Line)
		gutter := fmt.Sprintf("%4d | ", span.Start.Line)
		fmt.Fprintf(&b, "%s%s\n", gutter, text)

		width := 1
		if span.End.Line == span.Start.Line && span.End.Column > span.Start.Column {
			width = span.End.Column - span.Start.Column
		}
		pad := strings.Repeat(" ", len(gutter)+span.Start.Column-1)
		fmt.Fprintf(&b, "%s%s\n", pad, strings.Repeat("^", width))
	}
	return b.String()
}
