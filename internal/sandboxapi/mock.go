package sandboxapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
)

// MockClient is a scripted Client for testing.
//
// Each sandbox plays back a sequence of states: every GetSandbox consumes
// one entry and the last entry repeats. A successful stop switches the
// sandbox to its StopStates sequence, or to Ended when none is scripted.
type MockClient struct {
	mu sync.RWMutex

	// IDs are handed out in order by StartBlueprint; "sb-<n>" afterwards.
	IDs []string

	// States holds the remaining state sequence per sandbox.
	States map[string][]string

	// StopStates is the sequence a sandbox follows after a successful stop.
	StopStates map[string][]string

	// SetupStages is returned as Sandbox.SetupStage.
	SetupStages map[string]string

	// Activity holds each sandbox's full event log in id order.
	Activity map[string][]cohort.Event

	// IgnoreFromEventID makes GetActivity ignore ActivityQuery.FromEventID,
	// like a server that cannot filter by id.
	IgnoreFromEventID bool

	// StopErrors and GetErrors are consumed one per call; a nil entry or an
	// exhausted sequence means success.
	StopErrors map[string][]error
	GetErrors  map[string][]error

	// Errors allows injecting errors for every call of an operation
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall

	launched int
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockClient creates a new mock client
func NewMockClient() *MockClient {
	return &MockClient{
		States:      make(map[string][]string),
		StopStates:  make(map[string][]string),
		SetupStages: make(map[string]string),
		Activity:    make(map[string][]cohort.Event),
		StopErrors:  make(map[string][]error),
		GetErrors:   make(map[string][]error),
		Errors:      make(map[string]error),
		CallLog:     make([]MockCall, 0),
	}
}

func (m *MockClient) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockClient) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// SetStates scripts the state sequence of a sandbox.
func (m *MockClient) SetStates(id string, states ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.States[id] = states
}

// AddEvents appends events to a sandbox's activity log.
func (m *MockClient) AddEvents(id string, events ...cohort.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Activity[id] = append(m.Activity[id], events...)
}

// GetCalls returns all recorded calls
func (m *MockClient) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]MockCall, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method
func (m *MockClient) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// StartBlueprint assigns the next id. Unscripted sandboxes are Ready.
func (m *MockClient) StartBlueprint(ctx context.Context, req StartRequest) (*Sandbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("StartBlueprint", req)

	if err, ok := m.Errors["StartBlueprint"]; ok {
		return nil, err
	}

	var id string
	if m.launched < len(m.IDs) {
		id = m.IDs[m.launched]
	} else {
		id = fmt.Sprintf("sb-%d", m.launched+1)
	}
	m.launched++

	if _, ok := m.States[id]; !ok {
		m.States[id] = []string{StateReady}
	}
	return &Sandbox{ID: id, Name: req.Name, State: StateSetup}, nil
}

// GetSandbox plays back the next scripted state.
func (m *MockClient) GetSandbox(ctx context.Context, id string) (*Sandbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetSandbox", id)

	if err, ok := m.Errors["GetSandbox"]; ok {
		return nil, err
	}
	if err := pop(m.GetErrors, id); err != nil {
		return nil, err
	}

	seq, ok := m.States[id]
	if !ok || len(seq) == 0 {
		return nil, fmt.Errorf("sandbox not found: %s", id)
	}
	state := seq[0]
	if len(seq) > 1 {
		m.States[id] = seq[1:]
	}
	return &Sandbox{ID: id, State: state, SetupStage: m.SetupStages[id]}, nil
}

// StopSandbox consumes the next scripted stop error.
func (m *MockClient) StopSandbox(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("StopSandbox", id)

	if err, ok := m.Errors["StopSandbox"]; ok {
		return err
	}
	if err := pop(m.StopErrors, id); err != nil {
		return err
	}

	if seq, ok := m.StopStates[id]; ok {
		m.States[id] = seq
	} else {
		m.States[id] = []string{StateEnded}
	}
	return nil
}

// GetActivity filters the scripted event log.
func (m *MockClient) GetActivity(ctx context.Context, id string, q ActivityQuery) ([]cohort.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetActivity", id, q)

	if err, ok := m.Errors["GetActivity"]; ok {
		return nil, err
	}

	var out []cohort.Event
	for _, e := range m.Activity[id] {
		if q.ErrorOnly && e.Type != "Error" {
			continue
		}
		if !m.IgnoreFromEventID && q.FromEventID > 0 && e.ID < q.FromEventID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func pop(seqs map[string][]error, id string) error {
	seq := seqs[id]
	if len(seq) == 0 {
		return nil
	}
	seqs[id] = seq[1:]
	return seq[0]
}
