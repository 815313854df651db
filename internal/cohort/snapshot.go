package cohort

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const snapshotExt = ".json"

// record is the persisted form of an EntityHandle. Absent values are
// written as null so readers can tell "not recorded" from "empty".
type record struct {
	SandboxID        string  `json:"sandbox_id"`
	FailedSetupStage *string `json:"failed_setup_stage"`
	SetupErrors      []Event `json:"setup_errors"`
	TeardownErrors   []Event `json:"teardown_errors"`
}

// SnapshotName returns the storage name of a cohort snapshot.
func SnapshotName(runTimestamp, blueprintID string) string {
	return runTimestamp + "_" + blueprintID + snapshotExt
}

// ParseSnapshotName splits a snapshot name into its run timestamp and
// parsed time. Names not produced by SnapshotName are rejected.
func ParseSnapshotName(name string) (string, time.Time, error) {
	n := len(TimestampLayout)
	if len(name) <= n || name[n] != '_' || !strings.HasSuffix(name, snapshotExt) {
		return "", time.Time{}, fmt.Errorf("not a snapshot name: %q", name)
	}
	ts := name[:n]
	t, err := ParseTimestamp(ts)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("not a snapshot name: %q: %w", name, err)
	}
	return ts, t, nil
}

// Marshal encodes the cohort members as a snapshot document.
func Marshal(c *Cohort) ([]byte, error) {
	records := make([]record, 0, c.Len())
	for _, h := range c.members {
		r := record{SandboxID: h.ID}
		if len(h.SetupErrors) > 0 {
			r.SetupErrors = h.SetupErrors
		}
		if len(h.TeardownErrors) > 0 {
			r.TeardownErrors = h.TeardownErrors
		}
		if h.FailedSetupStage != "" {
			stage := h.FailedSetupStage
			r.FailedSetupStage = &stage
		}
		records = append(records, r)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a snapshot document into a cohort for the given run.
func Unmarshal(data []byte, blueprintID, runTimestamp string) (*Cohort, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	c := New(blueprintID, runTimestamp)
	for _, r := range records {
		h := &EntityHandle{
			ID:             r.SandboxID,
			SetupErrors:    r.SetupErrors,
			TeardownErrors: r.TeardownErrors,
		}
		if r.FailedSetupStage != nil {
			h.FailedSetupStage = *r.FailedSetupStage
		}
		if err := c.Add(h); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
	}
	return c, nil
}

// ISODuration formats minutes as an ISO-8601 duration, e.g. "PT1H30M".
func ISODuration(minutes int) string {
	return fmt.Sprintf("PT%dH%dM", minutes/60, minutes%60)
}
