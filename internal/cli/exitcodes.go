package cli

import "github.com/kbukum/httpdispatch/dispatcher"

// Exit codes for the httpdispatch command.
const (
	ExitSuccess = 0

	// ExitFailure indicates a server error or failed bench requests
	ExitFailure = 1

	// ExitResponseError indicates a response that could not be parsed or was invalid
	ExitResponseError = 2

	ExitConfigError = 3

	// ExitNetworkError indicates no response was received
	ExitNetworkError = 4

	ExitUsageError = 64
)

// exitError carries the process exit code for err. Silent errors have
// already been reported on stdout.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitError{code: ExitUsageError, err: err}
}

func configError(err error) error {
	return &exitError{code: ExitConfigError, err: err}
}

// exitCodeFor maps a dispatch error to an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case dispatcher.IsServerError(err):
		return ExitFailure
	case dispatcher.IsParseFailure(err), dispatcher.IsInvalidResponse(err):
		return ExitResponseError
	case dispatcher.IsTransportFailure(err):
		return ExitNetworkError
	default:
		return ExitFailure
	}
}
