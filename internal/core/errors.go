package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Callers wrap these with context and test with errors.Is.
var (
	// ErrConfig marks configuration errors: missing settings, invalid values.
	ErrConfig = errors.New("configuration error")
	// ErrPersistence marks a failure to durably save state.
	ErrPersistence = errors.New("persistence error")
	// ErrCorruptState is returned when a state record exists but cannot be decoded.
	ErrCorruptState = errors.New("corrupt state record")
	// ErrGuardQuery is returned when the running-job query itself failed.
	ErrGuardQuery = errors.New("failed to determine whether a job is running")
	// ErrAlreadyRunning is returned when a job for the policy/client is already in flight.
	ErrAlreadyRunning = errors.New("a backup job is already running")
	// ErrFailureThreshold is returned when the consecutive failure count reached the threshold.
	ErrFailureThreshold = errors.New("failure count reached threshold")
	// ErrWindowClosed is returned when the scheduled weekday ended before a retry.
	ErrWindowClosed = errors.New("scheduled weekday is over, unable to retry")
	// ErrExecution marks a backup invocation that returned a nonzero status.
	ErrExecution = errors.New("backup failed")
	// ErrInvocationTimeout marks a backup invocation that exceeded its deadline.
	ErrInvocationTimeout = errors.New("backup invocation timed out")
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitConfig      = 2
	ExitPersistence = 3
)

var operationalErrors = []error{
	ErrGuardQuery,
	ErrAlreadyRunning,
	ErrFailureThreshold,
	ErrWindowClosed,
	ErrExecution,
	ErrInvocationTimeout,
	context.Canceled,
}

// IsOperational reports whether err is an operational condition that is
// logged and alerted but does not fail the process.
func IsOperational(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range operationalErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ExitCode maps an error returned by a scheduling run to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrPersistence):
		return ExitPersistence
	case errors.Is(err, ErrConfig), errors.Is(err, ErrCorruptState):
		return ExitConfig
	case IsOperational(err):
		return ExitOK
	default:
		return ExitError
	}
}

// ErrorList collects several errors, e.g. every invalid field of a policy file.
type ErrorList []error

func (e ErrorList) Error() string {
	errStrings := make([]string, len(e))
	for i, err := range e {
		errStrings[i] = err.Error()
	}
	return strings.Join(errStrings, "; ")
}

// Unwrap lets errors.Is match against each error in the list.
func (e ErrorList) Unwrap() []error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ValidationError represents an error in a specific field of a policy file.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("field '%s': %v (value: %+v)", e.Field, e.Err, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps an error with field context.
func NewValidationError(field string, value any, err error) error {
	return &ValidationError{
		Field: field,
		Value: value,
		Err:   err,
	}
}
