package store

import (
	"context"
	"sort"
	"sync"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

// DriverMemory identifies the in-memory store.
const DriverMemory = "memory"

// Memory is an in-process Store used by tests. Snapshots are kept in
// their encoded form so Load exercises the same codec as the real drivers.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]map[string][]byte
	saves int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

func (m *Memory) Driver() string { return DriverMemory }

func (m *Memory) Close() error { return nil }

// Save stores the encoded snapshot.
func (m *Memory) Save(ctx context.Context, c *cohort.Cohort) error {
	data, err := cohort.Marshal(c)
	if err != nil {
		return errors.StoreError("encode", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	part, ok := m.data[c.BlueprintID]
	if !ok {
		part = make(map[string][]byte)
		m.data[c.BlueprintID] = part
	}
	part[cohort.SnapshotName(c.RunTimestamp, c.BlueprintID)] = data
	m.saves++
	return nil
}

// Load decodes a stored snapshot.
func (m *Memory) Load(ctx context.Context, blueprintID, runTimestamp string) (*cohort.Cohort, error) {
	m.mu.RLock()
	data, ok := m.data[blueprintID][cohort.SnapshotName(runTimestamp, blueprintID)]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.RunNotFound(blueprintID, runTimestamp)
	}
	c, err := cohort.Unmarshal(data, blueprintID, runTimestamp)
	if err != nil {
		return nil, errors.StoreError("decode", err)
	}
	return c, nil
}

// List returns the stored names for a blueprint in sorted order.
func (m *Memory) List(ctx context.Context, blueprintID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.data[blueprintID]))
	for name := range m.data[blueprintID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Raw returns the encoded snapshot, for assertions on the stored form.
func (m *Memory) Raw(blueprintID, runTimestamp string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[blueprintID][cohort.SnapshotName(runTimestamp, blueprintID)]
	return data, ok
}

// Saves returns the number of successful Save calls.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
