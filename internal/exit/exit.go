package exit

import (
	"fmt"
	"io"
	"os"
)

const (
	CodeSuccess = 0
	// CodeFailure means the command ran but found problems: compile errors,
	// failed test cases or events that errored.
	CodeFailure = 1
	// CodeUsage means the command could not run: bad flags, unreadable files.
	CodeUsage = 2
)

// Result holds the output destination and exit code for program termination.
type Result struct {
	Output   io.Writer
	ExitCode int
	Message  string
}

// Error lets a Result travel through cobra's RunE as an error.
func (r *Result) Error() string {
	return r.Message
}

// Print writes the result message to the configured output destination.
func (r *Result) Print() {
	if r.Message == "" {
		return
	}
	fmt.Fprint(r.Output, r.Message)
}

// Success creates a successful exit result that outputs to stdout with exit code 0.
func Success(message string) *Result {
	return &Result{
		Output:   os.Stdout,
		ExitCode: CodeSuccess,
		Message:  message,
	}
}

// Failure reports problems found by a command that otherwise ran.
func Failure(message string) *Result {
	return &Result{
		Output:   os.Stderr,
		ExitCode: CodeFailure,
		Message:  message,
	}
}

// Usagef reports a command that could not run.
func Usagef(format string, a ...any) *Result {
	return &Result{
		Output:   os.Stderr,
		ExitCode: CodeUsage,
		Message:  fmt.Sprintf(format, a...),
	}
}

// Errorf creates a failure result with a formatted message.
func Errorf(format string, a ...any) *Result {
	return Failure(fmt.Sprintf(format, a...))
}
