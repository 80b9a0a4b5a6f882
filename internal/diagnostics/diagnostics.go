// Package diagnostics classifies script failures and carries their source spans.
package diagnostics

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies a failure.
type Code string

const (
	CodeUnexpectedToken  Code = "unexpected_token"
	CodeUnterminated     Code = "unterminated"
	CodeUnbalanced       Code = "unbalanced"
	CodeInvalidNumber    Code = "invalid_number"
	CodeInvalidEscape    Code = "invalid_escape"
	CodeEmptyProgram     Code = "empty_program"
	CodeInvalidExtractor Code = "invalid_extractor"
	CodeUnknownExtractor Code = "unknown_extractor"
	CodeUnresolvedImport Code = "unresolved_import"
	CodeUnknownVariable  Code = "unknown_variable"
	CodeUnknownFunction  Code = "unknown_function"
	CodeBadArity         Code = "bad_arity"
	CodeAssignToConst    Code = "assign_to_const"
	CodeDuplicateConst   Code = "duplicate_const"
	CodeNotConstant      Code = "not_constant"
	CodeInvalidContext   Code = "invalid_context"
	CodeTypeMismatch     Code = "type_mismatch"
	CodeMissingField     Code = "missing_field"
	CodeIndexOutOfRange  Code = "index_out_of_range"
	CodeDivisionByZero   Code = "division_by_zero"
	CodeOverflow         Code = "overflow"
	CodeUnsetVariable    Code = "unset_variable"
	CodePatchFailed      Code = "patch_failed"
	CodeMergeFailed      Code = "merge_failed"
	CodeFunctionFailed   Code = "function_failed"
	CodeDepthExceeded    Code = "depth_exceeded"
)

// Stage identifies where a failure was raised.
type Stage string

const (
	StageParse   Stage = "parse"
	StageCompile Stage = "compile"
	StageRun     Stage = "run"
)

var (
	ErrSyntax  = errors.New("syntax error")
	ErrCompile = errors.New("compile error")
	ErrRuntime = errors.New("runtime error")
)

// Location is a position in script source. Offset is a byte offset, Line and
// Column are 1-based with Column counted in bytes.
type Location struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Span is the half-open source range [Start, End).
type Span struct {
	Start Location `json:"start"`
	End   Location `json:"end"`
}

func (s Span) String() string {
	return s.Start.String()
}

// IsZero reports whether the span carries no position.
func (s Span) IsZero() bool {
	return s.Start.Line == 0
}

// Diagnostic is implemented by every error type in this package.
type Diagnostic interface {
	error
	Stage() Stage
	Code() Code
	Span() Span
	Message() string
}

type base struct {
	code    Code
	span    Span
	message string
}

func (b base) Code() Code      { return b.code }
func (b base) Span() Span      { return b.span }
func (b base) Message() string { return b.message }

func (b base) format(kind string) string {
	if b.span.IsZero() {
		return fmt.Sprintf("%s: %s", kind, b.message)
	}
	return fmt.Sprintf("%s at %s: %s", kind, b.span, b.message)
}

// SyntaxError reports malformed source.
type SyntaxError struct{ base }

func (e *SyntaxError) Error() string { return e.format("syntax error") }
func (e *SyntaxError) Unwrap() error { return ErrSyntax }
func (e *SyntaxError) Stage() Stage  { return StageParse }

// CompileError reports a well formed script that cannot be compiled.
type CompileError struct{ base }

func (e *CompileError) Error() string { return e.format("compile error") }
func (e *CompileError) Unwrap() error { return ErrCompile }
func (e *CompileError) Stage() Stage  { return StageCompile }

// RuntimeError reports a failure while running a script against one event.
type RuntimeError struct{ base }

func (e *RuntimeError) Error() string { return e.format("runtime error") }
func (e *RuntimeError) Unwrap() error { return ErrRuntime }
func (e *RuntimeError) Stage() Stage  { return StageRun }

func Syntaxf(code Code, span Span, format string, args ...any) *SyntaxError {
	return &SyntaxError{base{code: code, span: span, message: fmt.Sprintf(format, args...)}}
}

func Compilef(code Code, span Span, format string, args ...any) *CompileError {
	return &CompileError{base{code: code, span: span, message: fmt.Sprintf(format, args...)}}
}

func Runtimef(code Code, span Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{base{code: code, span: span, message: fmt.Sprintf(format, args...)}}
}

// List aggregates compile-time diagnostics.
type List []error

func (l List) Error() string {
	parts := make([]string, 0, len(l))
	for _, err := range l {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "\n")
}

func (l List) Unwrap() []error {
	return l
}

// Err returns nil for an empty list, the single error for a list of one and
// the list itself otherwise.
func (l List) Err() error {
	switch len(l) {
	case 0:
		return nil
	case 1:
		return l[0]
	default:
		return l
	}
}

// All flattens err into its individual diagnostics. Errors that carry no
// diagnostic are skipped.
func All(err error) []Diagnostic {
	if err == nil {
		return nil
	}
	var out []Diagnostic
	var list List
	if errors.As(err, &list) {
		for _, item := range list {
			out = append(out, All(item)...)
		}
		return out
	}
	var diagnostic Diagnostic
	if errors.As(err, &diagnostic) {
		out = append(out, diagnostic)
	}
	return out
}

// CodeOf returns the code of the first diagnostic in err, or "" if none.
func CodeOf(err error) Code {
	var diagnostic Diagnostic
	if errors.As(err, &diagnostic) {
		return diagnostic.Code()
	}
	return ""
}
