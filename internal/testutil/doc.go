// Package testutil provides test fixtures and utilities.
//
// # Fixtures
//
// Fixtures are embedded using go:embed:
//
//	fixtures/valid_config.toml
//	fixtures/invalid_config.toml
//	fixtures/setup_snapshot.json
//
// Helper functions parse them into typed values:
//
//	cfg, err := testutil.ValidConfig()
//	_, err := testutil.InvalidConfig()
//	c, err := testutil.SetupSnapshot("bp", "05-12-20_221829")
//
// # Test Environment
//
// NewTestEnv builds a temporary workspace with a written config file, a
// filesystem snapshot store, a scripted sandboxapi.MockClient and a fake
// clock, and installs the matching app as app.Default until the test ends:
//
//	env := testutil.NewTestEnv(t)
//	env.Client.SetStates("sb-1", sandboxapi.StateReady)
//	env.AddReadyRun("05-12-20_221829", "sb-1")
package testutil
