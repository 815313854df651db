package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/lifecycle"
)

// displaySetup summarizes a setup phase for the user.
func displaySetup(r *lifecycle.SetupReport) {
	if r == nil || r.Cohort == nil {
		return
	}
	logInfo("Setup: %d launched, %d ready, %d failed, %d pending (%s)",
		r.Cohort.Len(), len(r.Ready), len(r.Failed), len(r.Pending), r.Elapsed.Round(time.Second))
	if s := stateSummary(r.States); s != "" {
		logInfo("States: %s", s)
	}
	if len(r.Failed) > 0 {
		logWarning("Failed setups: %s", strings.Join(r.Failed, ", "))
	}
	if len(r.Pending) > 0 {
		logWarning("Setup not finished: %s", strings.Join(r.Pending, ", "))
	}
}

// displayTeardown summarizes a teardown phase for the user.
func displayTeardown(r *lifecycle.TeardownReport) {
	if r == nil || r.Cohort == nil {
		return
	}
	logInfo("Teardown: %d sandboxes, %d ended, %d with errors, %d pending (%s)",
		r.Cohort.Len(), len(r.Ended), len(r.Failed), len(r.Pending), r.Elapsed.Round(time.Second))
	if s := stateSummary(r.States); s != "" {
		logInfo("States: %s", s)
	}
	if len(r.Failed) > 0 {
		logWarning("Failed teardowns: %s", strings.Join(r.Failed, ", "))
	}
	if len(r.Pending) > 0 {
		logWarning("Teardown not finished: %s", strings.Join(r.Pending, ", "))
	}
}

// stateSummary counts sandboxes per lifecycle state, e.g.
// "ReadyNoError 2, SetupFailed 1".
func stateSummary(states map[string]lifecycle.State) string {
	counts := make(map[lifecycle.State]int)
	for _, s := range states {
		counts[s]++
	}
	names := make([]string, 0, len(counts))
	for s := range counts {
		names = append(names, string(s))
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s %d", name, counts[lifecycle.State(name)])
	}
	return strings.Join(parts, ", ")
}
