package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mfelsche/tremor-runtime/internal/exit"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	return exitCode(cmd.ExecuteContext(ctx), stderr)
}

// exitCode prints err and maps it to a process exit code. Errors that are
// not exit results come from cobra's own flag and argument checks.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exit.CodeSuccess
	}
	var result *exit.Result
	if errors.As(err, &result) {
		result.Output = stderr
		result.Print()
		return result.ExitCode
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exit.CodeUsage
}
