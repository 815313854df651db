// Package audit provides structured event logging for cohort lifecycle events.
// Events are stored as JSON Lines (JSONL) files, one per run.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventLaunch         EventType = "launch"
	EventReady          EventType = "ready"
	EventSetupFailed    EventType = "setup-failed"
	EventStop           EventType = "stop"
	EventStopRetry      EventType = "stop-retry"
	EventEnded          EventType = "ended"
	EventTeardownFailed EventType = "teardown-failed"
	EventTimeout        EventType = "timeout"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Blueprint string    `json:"blueprint"`
	Run       string    `json:"run"`
	Sandbox   string    `json:"sandbox,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Logger writes and reads audit events for runs.
// Events are stored in {dir}/{blueprint}/{run}.events.jsonl.
type Logger struct {
	mu  sync.Mutex
	dir string
}

// NewLogger creates a new audit logger rooted at dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir}
}

// eventPath returns the path to the JSONL event log for a run.
func (l *Logger) eventPath(blueprint, run string) string {
	return filepath.Join(l.dir, blueprint, run+".events.jsonl")
}

// Log appends an event to the run's audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.eventPath(event.Blueprint, event.Run)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Events reads all events for a run in the order they were written.
func (l *Logger) Events(blueprint, run string) ([]Event, error) {
	path := l.eventPath(blueprint, run)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Remove deletes the audit log for a run.
func (l *Logger) Remove(blueprint, run string) error {
	path := l.eventPath(blueprint, run)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
