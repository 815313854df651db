package cohort

import (
	"fmt"
	"time"
)

// TimestampLayout formats run timestamps, e.g. "05-12-20_221829".
// It is embedded in snapshot names, so it must stay fixed-width.
const TimestampLayout = "01-02-06_150405"

// MaxDisplayNameLength is the longest sandbox name the remote API accepts.
const MaxDisplayNameLength = 60

// Event is a single activity feed entry as returned by the remote API.
// Ids increase monotonically per sandbox.
type Event struct {
	ID     int    `json:"id" yaml:"id"`
	Type   string `json:"event_type" yaml:"event_type"`
	Text   string `json:"event_text" yaml:"event_text"`
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
	Time   string `json:"time" yaml:"time"`
}

// EntityHandle tracks one sandbox and the errors collected for it.
type EntityHandle struct {
	ID               string
	FailedSetupStage string
	SetupErrors      []Event
	TeardownErrors   []Event
}

// SetupFailed reports whether the sandbox reached the error state during setup.
func (h *EntityHandle) SetupFailed() bool {
	return h.FailedSetupStage != "" || len(h.SetupErrors) > 0
}

// TeardownFailed reports whether teardown-phase errors were attributed to the sandbox.
func (h *EntityHandle) TeardownFailed() bool {
	return len(h.TeardownErrors) > 0
}

// Cohort is the set of sandboxes launched together for one run of a blueprint.
// Members keep insertion order for reporting.
type Cohort struct {
	BlueprintID  string
	RunTimestamp string

	members []*EntityHandle
	index   map[string]*EntityHandle
}

// New creates an empty cohort.
func New(blueprintID, runTimestamp string) *Cohort {
	return &Cohort{
		BlueprintID:  blueprintID,
		RunTimestamp: runTimestamp,
		index:        make(map[string]*EntityHandle),
	}
}

// Add appends a sandbox to the cohort. Ids must be unique.
func (c *Cohort) Add(h *EntityHandle) error {
	if h == nil || h.ID == "" {
		return fmt.Errorf("sandbox id is required")
	}
	if c.index == nil {
		c.index = make(map[string]*EntityHandle)
	}
	if _, exists := c.index[h.ID]; exists {
		return fmt.Errorf("duplicate sandbox id %s", h.ID)
	}
	c.members = append(c.members, h)
	c.index[h.ID] = h
	return nil
}

// Get returns the handle for id.
func (c *Cohort) Get(id string) (*EntityHandle, bool) {
	h, ok := c.index[id]
	return h, ok
}

// Members returns the handles in insertion order.
func (c *Cohort) Members() []*EntityHandle {
	out := make([]*EntityHandle, len(c.members))
	copy(out, c.members)
	return out
}

// IDs returns the sandbox ids in insertion order.
func (c *Cohort) IDs() []string {
	ids := make([]string, len(c.members))
	for i, h := range c.members {
		ids[i] = h.ID
	}
	return ids
}

// Len returns the number of sandboxes in the cohort.
func (c *Cohort) Len() int {
	return len(c.members)
}

// FailedSetups returns the ids of sandboxes whose setup failed.
func (c *Cohort) FailedSetups() []string {
	var ids []string
	for _, h := range c.members {
		if h.SetupFailed() {
			ids = append(ids, h.ID)
		}
	}
	return ids
}

// FailedTeardowns returns the ids of sandboxes with teardown errors.
func (c *Cohort) FailedTeardowns() []string {
	var ids []string
	for _, h := range c.members {
		if h.TeardownFailed() {
			ids = append(ids, h.ID)
		}
	}
	return ids
}

// Timestamp formats t as a run timestamp in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a run timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// DisplayName builds the sandbox name shown in the remote portal.
func DisplayName(runTimestamp, blueprintID string) string {
	return TruncateName(fmt.Sprintf("%s - %s", runTimestamp, blueprintID))
}

// TruncateName keeps s within MaxDisplayNameLength, marking the cut with "..".
func TruncateName(s string) string {
	if len(s) <= MaxDisplayNameLength {
		return s
	}
	return s[:MaxDisplayNameLength-2] + ".."
}
