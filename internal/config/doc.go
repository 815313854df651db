// Package config provides configuration types and loading for sandbox-load.
//
// # Configuration File
//
// Settings are read from a TOML file (config.toml by default) on top of
// Default():
//
//	[api]
//	server = "cloudshell.example.com"
//	port = 82
//	user = "admin"
//	domain = "Global"
//
//	[run]
//	blueprint_id = "load-test"
//	sandbox_quantity = 10
//	sandbox_duration_minutes = 120
//	active_sandbox_minutes = 2
//	estimated_setup_minutes = 5
//	estimated_teardown_minutes = 2
//	setup_polling_timeout = 30
//	teardown_polling_timeout = 20
//	polling_frequency_seconds = 30
//
//	[[run.blueprint_params]]
//	name = "size"
//	value = "small"
//
//	[store]
//	driver = "fs"            # fs, s3, sqlite or postgres
//	results_dir = "json-results"
//
// # Environment
//
// SANDBOX_LOAD_API_USER, SANDBOX_LOAD_API_PASSWORD and SANDBOX_LOAD_STORE_DSN
// override the matching file settings.
//
// # Validation
//
// Load validates the decoded configuration against an embedded CUE schema
// (schema.cue) and then applies cross-field checks in Validate. Unknown
// keys are rejected.
package config
