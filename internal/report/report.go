// Package report renders a persisted cohort as text, JSON or YAML.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Sandbox statuses.
const (
	StatusOK             = "ok"
	StatusSetupFailed    = "setup-failed"
	StatusTeardownFailed = "teardown-failed"
	StatusBothFailed     = "setup-and-teardown-failed"
)

// SandboxSummary is the per-sandbox part of a Summary.
type SandboxSummary struct {
	ID               string         `yaml:"sandbox_id"`
	Status           string         `yaml:"status"`
	FailedSetupStage string         `yaml:"failed_setup_stage,omitempty"`
	SetupErrors      []cohort.Event `yaml:"setup_errors,omitempty"`
	TeardownErrors   []cohort.Event `yaml:"teardown_errors,omitempty"`
}

// Summary describes the outcome of one run.
type Summary struct {
	BlueprintID    string           `yaml:"blueprint_id"`
	RunTimestamp   string           `yaml:"run_timestamp"`
	Total          int              `yaml:"total"`
	SetupFailed    int              `yaml:"setup_failed"`
	TeardownFailed int              `yaml:"teardown_failed"`
	Sandboxes      []SandboxSummary `yaml:"sandboxes"`
}

// Summarize builds the summary of a cohort in member order.
func Summarize(c *cohort.Cohort) Summary {
	s := Summary{
		BlueprintID:  c.BlueprintID,
		RunTimestamp: c.RunTimestamp,
		Total:        c.Len(),
		Sandboxes:    make([]SandboxSummary, 0, c.Len()),
	}
	for _, h := range c.Members() {
		status := StatusOK
		switch {
		case h.SetupFailed() && h.TeardownFailed():
			status = StatusBothFailed
		case h.SetupFailed():
			status = StatusSetupFailed
		case h.TeardownFailed():
			status = StatusTeardownFailed
		}
		if h.SetupFailed() {
			s.SetupFailed++
		}
		if h.TeardownFailed() {
			s.TeardownFailed++
		}
		s.Sandboxes = append(s.Sandboxes, SandboxSummary{
			ID:               h.ID,
			Status:           status,
			FailedSetupStage: h.FailedSetupStage,
			SetupErrors:      h.SetupErrors,
			TeardownErrors:   h.TeardownErrors,
		})
	}
	return s
}

// Write renders c to w in the given format. JSON output is the snapshot
// document itself.
func Write(w io.Writer, format Format, c *cohort.Cohort) error {
	switch format {
	case FormatJSON:
		data, err := cohort.Marshal(c)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Summarize(c)); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		_, err := io.WriteString(w, Text(Summarize(c)))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Text renders a summary for the terminal.
func Text(s Summary) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(cohort.DisplayName(s.RunTimestamp, s.BlueprintID)))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n")
	sb.WriteString(fmt.Sprintf("Sandboxes: %d | Failed setups: %d | Failed teardowns: %d\n\n",
		s.Total, s.SetupFailed, s.TeardownFailed))

	for _, box := range s.Sandboxes {
		if box.Status == StatusOK {
			sb.WriteString(okStyle.Render("✓ "+box.ID) + "\n")
			continue
		}
		sb.WriteString(failStyle.Render("✗ "+box.ID) + " " + dimStyle.Render(box.Status) + "\n")
		if box.FailedSetupStage != "" {
			sb.WriteString(fmt.Sprintf("   stage: %s\n", box.FailedSetupStage))
		}
		for _, e := range box.SetupErrors {
			sb.WriteString(fmt.Sprintf("   setup    #%d %s\n", e.ID, e.Text))
		}
		for _, e := range box.TeardownErrors {
			sb.WriteString(fmt.Sprintf("   teardown #%d %s\n", e.ID, e.Text))
		}
	}

	return sb.String()
}
