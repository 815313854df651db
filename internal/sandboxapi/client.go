package sandboxapi

import (
	"context"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
)

// Sandbox states reported by the remote API.
const (
	StateSetup    = "Setup"
	StateReady    = "Ready"
	StateError    = "Error"
	StateTeardown = "Teardown"
	StateEnded    = "Ended"
)

// Param is one blueprint input.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StartRequest describes a sandbox to launch from a blueprint.
type StartRequest struct {
	BlueprintID     string
	Name            string
	DurationMinutes int
	Params          []Param
}

// Sandbox is the subset of remote sandbox details the lifecycle needs.
type Sandbox struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	State      string `json:"state"`
	SetupStage string `json:"setup_stage"`
}

// ActivityQuery filters an activity feed request. FromEventID of zero
// means no id filter.
type ActivityQuery struct {
	ErrorOnly   bool
	FromEventID int
}

// Client is the capability the lifecycle uses to drive remote sandboxes.
// Implementations return errors wrapping errors.ErrRateLimited when the
// remote rejects a call because of its request quota.
type Client interface {
	StartBlueprint(ctx context.Context, req StartRequest) (*Sandbox, error)
	GetSandbox(ctx context.Context, id string) (*Sandbox, error)
	StopSandbox(ctx context.Context, id string) error
	GetActivity(ctx context.Context, id string, q ActivityQuery) ([]cohort.Event, error)
}
