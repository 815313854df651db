// Package correlate attributes activity feed errors to the teardown phase.
//
// Setup and teardown run at different times, possibly in different
// processes, and read the same per-sandbox event log. Event ids increase
// monotonically, so everything after the last recorded setup error belongs
// to teardown.
package correlate

import (
	"context"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/sandboxapi"
)

// EventSource reads a sandbox's activity feed.
type EventSource interface {
	GetActivity(ctx context.Context, id string, q sandboxapi.ActivityQuery) ([]cohort.Event, error)
}

// MaxEventID returns the largest event id, or 0 for no events.
func MaxEventID(events []cohort.Event) int {
	highest := 0
	for _, e := range events {
		if e.ID > highest {
			highest = e.ID
		}
	}
	return highest
}

// FilterPostSetupEvents returns the events attributable to teardown. With
// no setup errors every event qualifies; otherwise only events whose id is
// strictly greater than the largest setup error id. Order is preserved.
func FilterPostSetupEvents(setupErrors, events []cohort.Event) []cohort.Event {
	if len(setupErrors) == 0 {
		return events
	}
	cutoff := MaxEventID(setupErrors)
	var out []cohort.Event
	for _, e := range events {
		if e.ID > cutoff {
			out = append(out, e)
		}
	}
	return out
}

// Correlator fetches teardown errors for a sandbox.
type Correlator struct {
	src          EventSource
	serverFilter bool
}

// New returns a Correlator. When serverFilter is set the event source is
// trusted to apply from_event_id itself.
func New(src EventSource, serverFilter bool) *Correlator {
	return &Correlator{src: src, serverFilter: serverFilter}
}

// TeardownErrors returns the error events recorded for id after its setup
// errors.
func (c *Correlator) TeardownErrors(ctx context.Context, id string, setupErrors []cohort.Event) ([]cohort.Event, error) {
	q := sandboxapi.ActivityQuery{ErrorOnly: true}
	if c.serverFilter && len(setupErrors) > 0 {
		q.FromEventID = MaxEventID(setupErrors) + 1
		return c.src.GetActivity(ctx, id, q)
	}

	events, err := c.src.GetActivity(ctx, id, q)
	if err != nil {
		return nil, err
	}
	return FilterPostSetupEvents(setupErrors, events), nil
}
