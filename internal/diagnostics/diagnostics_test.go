package diagnostics

import (
	"errors"
	"strings"
	"testing"
)

func TestSourceLocation(t *testing.T) {
	t.Parallel()

	src := NewSource("let a = 1;\nlet b = 2;\n")

	tests := []struct {
		name   string
		offset int
		want   Location
	}{
		{name: "start", offset: 0, want: Location{Offset: 0, Line: 1, Column: 1}},
		{name: "same_line", offset: 4, want: Location{Offset: 4, Line: 1, Column: 5}},
		{name: "second_line", offset: 15, want: Location{Offset: 15, Line: 2, Column: 5}},
		{name: "clamped", offset: 999, want: Location{Offset: 22, Line: 3, Column: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := src.Location(tt.offset); got != tt.want {
				t.Fatalf("Location(%d) = %+v, want %+v", tt.offset, got, tt.want)
			}
		})
	}
}

func TestErrorsUnwrapToSentinels(t *testing.T) {
	t.Parallel()

	span := Span{Start: Location{Line: 1, Column: 2}}

	tests := []struct {
		name  string
		err   error
		want  error
		stage Stage
	}{
		{name: "syntax", err: Syntaxf(CodeUnexpectedToken, span, "x"), want: ErrSyntax, stage: StageParse},
		{name: "compile", err: Compilef(CodeUnknownFunction, span, "x"), want: ErrCompile, stage: StageCompile},
		{name: "runtime", err: Runtimef(CodeTypeMismatch, span, "x"), want: ErrRuntime, stage: StageRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !errors.Is(tt.err, tt.want) {
				t.Fatalf("errors.Is(%v, %v) = false", tt.err, tt.want)
			}
			var diagnostic Diagnostic
			if !errors.As(tt.err, &diagnostic) || diagnostic.Stage() != tt.stage {
				t.Fatalf("stage = %v, want %v", diagnostic, tt.stage)
			}
		})
	}
}

func TestListFlattening(t *testing.T) {
	t.Parallel()

	list := List{
		Compilef(CodeUnknownFunction, Span{}, "first"),
		Compilef(CodeBadArity, Span{}, "second"),
	}

	if got := All(list.Err()); len(got) != 2 {
		t.Fatalf("All() returned %d diagnostics, want 2", len(got))
	}
	if !errors.Is(list.Err(), ErrCompile) {
		t.Fatal("List should unwrap to ErrCompile")
	}
	if got := CodeOf(list.Err()); got != CodeUnknownFunction {
		t.Fatalf("CodeOf() = %q, want %q", got, CodeUnknownFunction)
	}
	if (List{}).Err() != nil {
		t.Fatal("empty List.Err() should be nil")
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	source := "let a = 1;\nlet b = ?;\n"
	src := NewSource(source)
	err := Syntaxf(CodeUnexpectedToken, src.Span(19, 20), "unexpected character '?'")

	got := Render(source, err)
	want := strings.Join([]string{
		"syntax error at 2:9: unexpected character '?'",
		"   2 | let b = ?;",
		"               ^",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", got, want)
	}
}
