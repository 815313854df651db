// Package tui provides terminal user interface components for sandbox-load.
//
// The run picker lists the persisted runs of a blueprint, newest first, and
// lets the user choose which cohort to tear down:
//
//	result, err := tui.RunPicker(runs, time.Now())
//	switch result.Action {
//	case tui.ActionTeardown:
//	    // Tear down result.Run
//	case tui.ActionQuit:
//	    // Exit
//	}
//
// When stdin or stdout is not a terminal, SimplePicker renders the same
// list as plain text.
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
