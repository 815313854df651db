package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for sandbox-load
const (
	ExitSuccess        = 0
	ExitGeneralError   = 1
	ExitRunNotFound    = 2
	ExitConfigError    = 3
	ExitTransportError = 4
	ExitPollingTimeout = 5
	ExitSetupFailed    = 6
	ExitTeardownFailed = 7
	ExitStopFailed     = 8
	ExitStoreError     = 9
)

// ErrRateLimited is the typed signal a transport returns when the remote API
// rejected a call because of its request quota.
var ErrRateLimited = errors.New("api rate quota exceeded")

// CohortError is the base error type for sandbox-load
type CohortError struct {
	Code     int
	Message  string
	Entities []string // sandbox ids the error is about, if any
	Cause    error
}

func (e *CohortError) Error() string {
	msg := e.Message
	if len(e.Entities) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(e.Entities, ", "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *CohortError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *CohortError) ExitCode() int {
	return e.Code
}

// New creates a new CohortError
func New(code int, message string) *CohortError {
	return &CohortError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a CohortError
func Wrap(code int, message string, cause error) *CohortError {
	return &CohortError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// Transport returns an error for a failed call to the remote orchestration API
func Transport(op string, cause error) *CohortError {
	return Wrap(ExitTransportError, fmt.Sprintf("sandbox api %s failed", op), cause)
}

// RateLimited returns a transport error that also matches ErrRateLimited
func RateLimited(op string, detail string) *CohortError {
	return Wrap(ExitTransportError, fmt.Sprintf("sandbox api %s rate limited: %s", op, detail), ErrRateLimited)
}

// PollingTimeout returns an error for a phase whose poll deadline passed
// with sandboxes still pending
func PollingTimeout(phase string, pending []string, cause error) *CohortError {
	return &CohortError{
		Code:     ExitPollingTimeout,
		Message:  fmt.Sprintf("%s polling timed out with %d pending", phase, len(pending)),
		Entities: pending,
		Cause:    cause,
	}
}

// SetupFailed returns the aggregate error for sandboxes that reached the
// error state during setup
func SetupFailed(ids []string) *CohortError {
	return &CohortError{
		Code:     ExitSetupFailed,
		Message:  fmt.Sprintf("%d failed setups", len(ids)),
		Entities: ids,
	}
}

// TeardownFailed returns the aggregate error for sandboxes that reported
// errors during teardown
func TeardownFailed(ids []string) *CohortError {
	return &CohortError{
		Code:     ExitTeardownFailed,
		Message:  fmt.Sprintf("%d failed teardowns", len(ids)),
		Entities: ids,
	}
}

// StopFailed returns an error for sandboxes that could not be stopped
func StopFailed(ids []string, cause error) *CohortError {
	return &CohortError{
		Code:     ExitStopFailed,
		Message:  fmt.Sprintf("could not stop %d sandboxes", len(ids)),
		Entities: ids,
		Cause:    cause,
	}
}

// RunNotFound returns an error for a missing cohort snapshot
func RunNotFound(blueprintID, runTimestamp string) *CohortError {
	return New(ExitRunNotFound, fmt.Sprintf("run not found: %s/%s", blueprintID, runTimestamp))
}

// NoRunsFound returns an error when a blueprint has no resolvable runs
func NoRunsFound(blueprintID string) *CohortError {
	return New(ExitRunNotFound, fmt.Sprintf("no runs found for blueprint: %s", blueprintID))
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *CohortError {
	return Wrap(ExitConfigError, message, cause)
}

// StoreError returns an error for snapshot storage operations
func StoreError(op string, cause error) *CohortError {
	return Wrap(ExitStoreError, fmt.Sprintf("snapshot %s failed", op), cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *CohortError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var cohortErr *CohortError
	if errors.As(err, &cohortErr) {
		return cohortErr.ExitCode()
	}
	return ExitGeneralError
}

// IsRateLimited reports whether err carries the rate limit signal
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join combines errors, dropping nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}
