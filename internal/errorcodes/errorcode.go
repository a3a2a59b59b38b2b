// Package errorcodes defines process exit codes and the error taxonomy using a structured type.
// ExitError holds the exit code a failure maps to and a human-readable description.
package errorcodes

import (
	"errors"
	"strconv"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitTimeout      = 124
	ExitToolNotFound = 127
	ExitInterrupted  = 130
)

// Predefined error instances.
var (
	ErrPluginLoad        = ExitError{ExitFailure, "plugin load failed"}
	ErrPluginNotFound    = ExitError{ExitFailure, "plugin not found"}
	ErrPluginUnavailable = ExitError{ExitFailure, "plugin not available"}
	ErrCommandNotFound   = ExitError{ExitFailure, "command not found"}
	ErrConfigLoad        = ExitError{ExitFailure, "config load failed"}
	ErrInvalidKey        = ExitError{ExitFailure, "invalid config key"}
	ErrToolFailure       = ExitError{ExitFailure, "command failed"}
	ErrToolTimeout       = ExitError{ExitTimeout, "command timed out"}
	ErrToolNotAvailable  = ExitError{ExitToolNotFound, "tool not available"}
	ErrInterrupted       = ExitError{ExitInterrupted, "operation cancelled by user"}
)

// ExitError represents a failure with the process exit code it maps to.
type ExitError struct {
	Code        int    // process exit code
	Description string // human-readable description
}

// Error implements the Go error interface.
func (e ExitError) Error() string {
	return e.Description
}

// Exit returns nil for a zero code, otherwise an ExitError carrying the code.
func Exit(code int) error {
	if code == ExitSuccess {
		return nil
	}

	return ExitError{Code: code, Description: "exit status " + strconv.Itoa(code)}
}

// CodeOf maps an error to a process exit code. Nil is success, errors without
// an ExitError in their chain are generic failures.
func CodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return ExitFailure
}
