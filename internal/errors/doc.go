// Package errors provides typed errors with exit codes for sandbox-load.
//
// # Error Types
//
// CohortError is the base error type that wraps an error with an exit code:
//
//	type CohortError struct {
//	    Code     int      // Exit code
//	    Message  string   // User-facing message
//	    Entities []string // Sandbox ids involved
//	    Cause    error    // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess         = 0  // Success
//	ExitGeneralError    = 1  // General/unknown errors
//	ExitRunNotFound     = 2  // Cohort snapshot does not exist
//	ExitConfigError     = 3  // Configuration error
//	ExitTransportError  = 4  // Sandbox API call failed
//	ExitPollingTimeout  = 5  // Poll deadline passed with sandboxes pending
//	ExitSetupFailed     = 6  // One or more sandboxes failed setup
//	ExitTeardownFailed  = 7  // One or more sandboxes reported teardown errors
//	ExitStopFailed      = 8  // A sandbox could not be stopped
//	ExitStoreError      = 9  // Snapshot storage failed
//
// # Rate Limits
//
// Transports signal quota rejections by wrapping ErrRateLimited; callers
// test for it with IsRateLimited rather than inspecting messages.
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
