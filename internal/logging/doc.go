// Package logging provides logging utilities for sandbox-load.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("sweep", "pending", len(pending))
//	logging.Warn("rate limited", "sandbox", id, "backoff", backoff)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Launching %d sandboxes from %s", n, blueprint)
//	logging.UserSuccess("All %d sandboxes ended", n)
//	logging.UserWarning("%d sandboxes failed setup", len(failed))
//	logging.UserError("Teardown failed: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// Both are package variables so commands and tests can redirect them.
//
// # Run Logs
//
// Every run also appends to logs/<timestamp>_<blueprint>.log. OpenRunLog
// opens that file; ForRun tags a logger with the run identity and an
// invocation id.
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
//
// Setup with JSON output sets Plain, which drops them.
package logging
