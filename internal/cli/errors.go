package cli

import (
	"errors"
	"strings"

	"github.com/specialistvlad/tempogrid/internal/scheduler"
	"github.com/specialistvlad/tempogrid/internal/validate"
)

// Exit codes.
const (
	ExitFailure    = 1
	ExitUsage      = 2
	ExitValidation = 3
	ExitScheduling = 4
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// exitError maps an application error to its exit code. Validation failures
// take precedence over scheduling failures when several files failed.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}

	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		return &ExitError{Code: ExitValidation, Message: err.Error()}
	case errors.Is(err, scheduler.ErrResourceDeadlock):
		return &ExitError{Code: ExitScheduling, Message: err.Error()}
	case strings.HasPrefix(err.Error(), "unknown command"):
		return usageError(err)
	}
	return &ExitError{Code: ExitFailure, Message: err.Error()}
}
