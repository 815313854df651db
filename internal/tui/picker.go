// Package tui provides terminal user interface components for sandbox-load
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionTeardown
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action Action
	Run    *store.RunRef
}

// runItem implements list.Item for run display
type runItem struct {
	ref    store.RunRef
	age    string
	latest bool
}

func (i runItem) Title() string {
	return i.ref.RunTimestamp
}

func (i runItem) Description() string {
	marker := "○"
	if i.latest {
		marker = "●"
	}
	return fmt.Sprintf("%s %s | %s | %s",
		marker,
		i.ref.Time.Format(time.RFC3339),
		i.age,
		i.ref.Name,
	)
}

func (i runItem) FilterValue() string {
	return i.ref.RunTimestamp
}

// formatAge renders the time since t in a compact form.
func formatAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < 0:
		return "in the future"
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh%dm ago", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// Model is the bubbletea model for the run picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new run picker. runs are expected newest first.
func NewPicker(runs []store.RunRef, now time.Time) Model {
	items := make([]list.Item, len(runs))
	for i, ref := range runs {
		items[i] = runItem{
			ref:    ref,
			age:    formatAge(ref.Time, now),
			latest: i == 0,
		}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	title := "sandbox-load - Select Run"
	if len(runs) > 0 {
		title = fmt.Sprintf("sandbox-load - %s runs", runs[0].BlueprintID)
	}

	l := list.New(items, delegate, 80, 20)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter", "t":
			if item, ok := m.list.SelectedItem().(runItem); ok {
				ref := item.ref
				m.result = PickerResult{
					Action: ActionTeardown,
					Run:    &ref,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc", "ctrl+c":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Tear down  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive run picker
func RunPicker(runs []store.RunRef, now time.Time) (PickerResult, error) {
	if len(runs) == 0 {
		return PickerResult{Action: ActionQuit}, nil
	}

	m := NewPicker(runs, now)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker is a non-interactive picker that just lists runs
func SimplePicker(blueprintID string, runs []store.RunRef, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("sandbox-load - %s runs\n", blueprintID))
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(runs) == 0 {
		sb.WriteString("No runs found.\n")
		sb.WriteString("Start one with: sandbox-load setup\n")
		return sb.String()
	}

	for i, ref := range runs {
		marker := "○"
		if i == 0 {
			marker = "●"
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s (%s)\n",
			i+1, marker, ref.RunTimestamp, formatAge(ref.Time, now)))
		sb.WriteString(fmt.Sprintf("   %s\n\n", ref.Name))
	}

	return sb.String()
}
