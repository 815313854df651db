package testutil

import (
	"embed"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadConfigFixture parses a TOML config fixture.
func LoadConfigFixture(name string) (*config.Config, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	return config.Parse(data)
}

// LoadSnapshotFixture decodes a snapshot fixture as the given run.
func LoadSnapshotFixture(name, blueprintID, runTimestamp string) (*cohort.Cohort, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	return cohort.Unmarshal(data, blueprintID, runTimestamp)
}

// ValidConfig returns the valid config fixture.
func ValidConfig() (*config.Config, error) {
	return LoadConfigFixture("valid_config.toml")
}

// InvalidConfig returns the invalid config fixture.
func InvalidConfig() (*config.Config, error) {
	return LoadConfigFixture("invalid_config.toml")
}

// SetupSnapshot returns a cohort as persisted after a setup phase in which
// the second of three sandboxes failed.
func SetupSnapshot(blueprintID, runTimestamp string) (*cohort.Cohort, error) {
	return LoadSnapshotFixture("setup_snapshot.json", blueprintID, runTimestamp)
}
