// Package exit carries a process exit code together with the message to
// print on the way out, so command code can return instead of calling
// os.Exit directly.
package exit

import (
	"fmt"
	"io"
	"os"
)

// Result pairs an exit code with its output destination and message.
type Result struct {
	Output   io.Writer
	ExitCode int
	Message  string
}

// Print writes the message to the result's output destination.
func (r *Result) Print() {
	fmt.Fprint(r.Output, r.Message)
}

// Success builds a zero exit result printing to stdout.
func Success(message string) *Result {
	return &Result{
		Output:   os.Stdout,
		ExitCode: 0,
		Message:  message,
	}
}

// Error builds a failing exit result printing to stderr.
func Error(message string) *Result {
	return &Result{
		Output:   os.Stderr,
		ExitCode: 1,
		Message:  message,
	}
}

// Errorf builds a failing exit result with a formatted message.
func Errorf(format string, a ...any) *Result {
	return Error(fmt.Sprintf(format, a...))
}
