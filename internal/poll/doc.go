// Package poll drives a set of independently progressing remote entities
// to a terminal state within a wall-clock deadline.
//
// UntilTerminal knows nothing about sandboxes: callers supply the per-id
// fetch and the terminal predicate. The same loop serves the setup
// readiness poll and the teardown completion poll.
//
// Timing:
//
//	sweep 1 → Interval → sweep 2 → Interval → ... (until empty or deadline)
//
// Within a sequential sweep, RequestGap separates fetches. Rate limit
// backoffs and gaps count against the deadline.
package poll
