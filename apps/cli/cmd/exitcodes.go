package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
)

// Exit codes for hitcase CLI
const (
	// ExitSuccess indicates all tests passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more tests failed
	ExitTestFailure = 1

	// ExitParseError indicates a case file could not be read or parsed
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates every executed step ended in error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64

	// ExitCancelled indicates the run was interrupted before it finished
	ExitCancelled = 130
)

// ExitError carries the process exit code out of a command. A nil Err means
// the outcome was already reported and only the code matters.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// exitCodeFor maps a suite result onto the process exit code.
func exitCodeFor(result *runner.SuiteResult) int {
	executed := result.Passed + result.Failed + result.Errored
	switch {
	case result.Cancelled:
		return ExitCancelled
	case result.Success():
		return ExitSuccess
	case executed > 0 && result.Errored == executed:
		return ExitNetworkError
	default:
		return ExitTestFailure
	}
}
