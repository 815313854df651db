package correlate

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/sandboxapi"
)

func ids(events []cohort.Event) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func events(ids ...int) []cohort.Event {
	out := make([]cohort.Event, len(ids))
	for i, id := range ids {
		out[i] = cohort.Event{ID: id, Type: "Error", Text: fmt.Sprintf("event %d", id)}
	}
	return out
}

func TestFilterPostSetupEvents(t *testing.T) {
	tests := []struct {
		name  string
		setup []cohort.Event
		all   []cohort.Event
		want  []int
	}{
		{"strictly after max setup id", events(5, 9), events(9, 10, 12), []int{10, 12}},
		{"no setup errors keeps all", nil, events(1, 2), []int{1, 2}},
		{"nothing after setup", events(3), events(1, 2, 3), []int{}},
		{"unsorted setup errors", events(9, 5), events(6, 10), []int{10}},
		{"order preserved", events(1), events(12, 10, 11), []int{12, 10, 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterPostSetupEvents(tt.setup, tt.all))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterPostSetupEvents() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaxEventID(t *testing.T) {
	if got := MaxEventID(nil); got != 0 {
		t.Errorf("MaxEventID(nil) = %d", got)
	}
	if got := MaxEventID(events(4, 11, 7)); got != 11 {
		t.Errorf("MaxEventID() = %d, want 11", got)
	}
}

func TestCorrelator_ServerFilter(t *testing.T) {
	m := sandboxapi.NewMockClient()
	m.AddEvents("sb-1", events(5, 9, 10, 12)...)

	got, err := New(m, true).TeardownErrors(context.Background(), "sb-1", events(5, 9))
	if err != nil {
		t.Fatalf("TeardownErrors() error: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []int{10, 12}) {
		t.Errorf("TeardownErrors() = %v, want [10 12]", ids(got))
	}

	calls := m.GetCallsFor("GetActivity")
	if len(calls) != 1 {
		t.Fatalf("GetActivity calls = %d, want 1", len(calls))
	}
	q := calls[0].Args[1].(sandboxapi.ActivityQuery)
	if !q.ErrorOnly || q.FromEventID != 10 {
		t.Errorf("query = %+v, want error_only from 10", q)
	}
}

func TestCorrelator_ClientSideFallback(t *testing.T) {
	m := sandboxapi.NewMockClient()
	m.IgnoreFromEventID = true
	m.AddEvents("sb-1", events(5, 9, 10, 12)...)

	got, err := New(m, false).TeardownErrors(context.Background(), "sb-1", events(5, 9))
	if err != nil {
		t.Fatalf("TeardownErrors() error: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []int{10, 12}) {
		t.Errorf("TeardownErrors() = %v, want [10 12]", ids(got))
	}

	q := m.GetCallsFor("GetActivity")[0].Args[1].(sandboxapi.ActivityQuery)
	if q.FromEventID != 0 {
		t.Errorf("fallback should not send from_event_id, got %d", q.FromEventID)
	}
}

func TestCorrelator_CleanSetup(t *testing.T) {
	m := sandboxapi.NewMockClient()
	m.AddEvents("sb-1", events(1, 2)...)

	got, err := New(m, true).TeardownErrors(context.Background(), "sb-1", nil)
	if err != nil {
		t.Fatalf("TeardownErrors() error: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []int{1, 2}) {
		t.Errorf("TeardownErrors() = %v, want [1 2]", ids(got))
	}
}

func TestCorrelator_SourceError(t *testing.T) {
	m := sandboxapi.NewMockClient()
	m.SetError("GetActivity", fmt.Errorf("unavailable"))

	if _, err := New(m, false).TeardownErrors(context.Background(), "sb-1", nil); err == nil {
		t.Error("expected source error")
	}
}
