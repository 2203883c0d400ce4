package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitError carries a non-zero hook status to main. Err is set when the run
// failed rather than reporting findings.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to a process exit code, printing errors that
// were not already reported to the user.
func ExitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
