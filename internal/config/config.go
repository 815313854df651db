package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kballard/go-shellquote"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

const (
	DefaultConfigFile = "config.toml"
	DefaultResultsDir = "json-results"
	DefaultLogsDir    = "logs"
	DefaultStateDir   = ".sandbox-load"
	DefaultAPIVersion = "v2"
	DefaultAPIPort    = 82
	DefaultDomain     = "Global"
)

// Environment variables that override file settings.
const (
	EnvAPIUser     = "SANDBOX_LOAD_API_USER"
	EnvAPIPassword = "SANDBOX_LOAD_API_PASSWORD"
	EnvStoreDSN    = "SANDBOX_LOAD_STORE_DSN"
)

// Store drivers.
const (
	DriverFS       = "fs"
	DriverS3       = "s3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// blueprintIDRegex rejects ids that cannot be used as a storage partition.
var blueprintIDRegex = regexp.MustCompile(`^[^/\\\x00]{1,128}$`)

// ValidateBlueprintID checks that a blueprint id can name a storage partition.
func ValidateBlueprintID(id string) error {
	if id == "" {
		return fmt.Errorf("blueprint id cannot be empty")
	}
	if id == "." || id == ".." || !blueprintIDRegex.MatchString(id) {
		return fmt.Errorf("invalid blueprint id %q: must be 1-128 characters without path separators", id)
	}
	return nil
}

// Config is the root configuration loaded from config.toml
type Config struct {
	API     APIConfig     `toml:"api" json:"api"`
	Run     RunConfig     `toml:"run" json:"run"`
	Store   StoreConfig   `toml:"store" json:"store"`
	Paths   Paths         `toml:"paths" json:"paths"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
}

// APIConfig locates and authenticates against the sandbox API.
type APIConfig struct {
	Server         string `toml:"server" json:"server"`
	Port           int    `toml:"port" json:"port"`
	User           string `toml:"user" json:"user"`
	Password       string `toml:"password" json:"password"`
	Domain         string `toml:"domain" json:"domain"`
	Version        string `toml:"version" json:"version"`
	TimeoutSeconds int    `toml:"timeout_seconds" json:"timeout_seconds"`
	// ServerEventFilter trusts the server to honor from_event_id.
	ServerEventFilter bool `toml:"server_event_filter" json:"server_event_filter"`
}

// Param is one blueprint input. Order is preserved.
type Param struct {
	Name  string `toml:"name" json:"name"`
	Value string `toml:"value" json:"value"`
}

// RunConfig describes one cohort run
type RunConfig struct {
	BlueprintID                   string  `toml:"blueprint_id" json:"blueprint_id"`
	SandboxQuantity               int     `toml:"sandbox_quantity" json:"sandbox_quantity"`
	SandboxDurationMinutes        int     `toml:"sandbox_duration_minutes" json:"sandbox_duration_minutes"`
	ActiveSandboxMinutes          int     `toml:"active_sandbox_minutes" json:"active_sandbox_minutes"`
	EstimatedSetupMinutes         int     `toml:"estimated_setup_minutes" json:"estimated_setup_minutes"`
	EstimatedTeardownMinutes      int     `toml:"estimated_teardown_minutes" json:"estimated_teardown_minutes"`
	SetupPollingTimeoutMinutes    int     `toml:"setup_polling_timeout" json:"setup_polling_timeout"`
	TeardownPollingTimeoutMinutes int     `toml:"teardown_polling_timeout" json:"teardown_polling_timeout"`
	PollingFrequencySeconds       int     `toml:"polling_frequency_seconds" json:"polling_frequency_seconds"`
	RequestGapSeconds             int     `toml:"request_gap_seconds" json:"request_gap_seconds"`
	RateLimitBackoffSeconds       int     `toml:"rate_limit_backoff_seconds" json:"rate_limit_backoff_seconds"`
	StopRetryDelaySeconds         int     `toml:"stop_retry_delay_seconds" json:"stop_retry_delay_seconds"`
	PollParallelism               int     `toml:"poll_parallelism" json:"poll_parallelism"`
	BlueprintParams               []Param `toml:"blueprint_params" json:"blueprint_params"`
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }
func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// SetupSettle is the wait between launch and the first setup poll.
func (r RunConfig) SetupSettle() time.Duration { return minutes(r.EstimatedSetupMinutes) }

// TeardownSettle is the wait between stopping and the first teardown poll.
func (r RunConfig) TeardownSettle() time.Duration { return minutes(r.EstimatedTeardownMinutes) }

// ActivePeriod is how long the combined flow keeps sandboxes up.
func (r RunConfig) ActivePeriod() time.Duration { return minutes(r.ActiveSandboxMinutes) }

func (r RunConfig) SetupTimeout() time.Duration    { return minutes(r.SetupPollingTimeoutMinutes) }
func (r RunConfig) TeardownTimeout() time.Duration { return minutes(r.TeardownPollingTimeoutMinutes) }
func (r RunConfig) PollInterval() time.Duration    { return seconds(r.PollingFrequencySeconds) }
func (r RunConfig) RequestGap() time.Duration      { return seconds(r.RequestGapSeconds) }
func (r RunConfig) StopRetryDelay() time.Duration  { return seconds(r.StopRetryDelaySeconds) }

// RateLimitBackoff is waited before retrying a throttled poll request.
func (r RunConfig) RateLimitBackoff() time.Duration { return seconds(r.RateLimitBackoffSeconds) }

// StoreConfig selects where cohort snapshots are kept.
type StoreConfig struct {
	Driver     string `toml:"driver" json:"driver"`
	ResultsDir string `toml:"results_dir" json:"results_dir"`
	DSN        string `toml:"dsn" json:"dsn"`
	Bucket     string `toml:"bucket" json:"bucket"`
	Prefix     string `toml:"prefix" json:"prefix"`
	Region     string `toml:"region" json:"region"`
	Endpoint   string `toml:"endpoint" json:"endpoint"`
	PathStyle  bool   `toml:"path_style" json:"path_style"`
}

// Paths holds the configured local directories
type Paths struct {
	LogsDir  string `toml:"logs_dir" json:"logs_dir"`
	StateDir string `toml:"state_dir" json:"state_dir"`
}

// AuditDir returns the directory holding per-run lifecycle event logs.
func (p Paths) AuditDir() string {
	return filepath.Join(p.StateDir, "audit")
}

// MetricsConfig configures the optional Pushgateway export.
type MetricsConfig struct {
	Pushgateway string `toml:"pushgateway" json:"pushgateway"`
	Job         string `toml:"job" json:"job"`
}

// Default returns a configuration with every optional setting filled in.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Port:           DefaultAPIPort,
			Domain:         DefaultDomain,
			Version:        DefaultAPIVersion,
			TimeoutSeconds: 60,
		},
		Run: RunConfig{
			SandboxQuantity:               1,
			SandboxDurationMinutes:        120,
			ActiveSandboxMinutes:          2,
			EstimatedSetupMinutes:         5,
			EstimatedTeardownMinutes:      2,
			SetupPollingTimeoutMinutes:    30,
			TeardownPollingTimeoutMinutes: 20,
			PollingFrequencySeconds:       30,
			RequestGapSeconds:             2,
			RateLimitBackoffSeconds:       60,
			StopRetryDelaySeconds:         5,
			PollParallelism:               1,
		},
		Store: StoreConfig{
			Driver:     DriverFS,
			ResultsDir: DefaultResultsDir,
			Prefix:     "cohorts",
		},
		Paths: Paths{
			LogsDir:  DefaultLogsDir,
			StateDir: DefaultStateDir,
		},
		Metrics: MetricsConfig{
			Job: "sandbox-load",
		},
	}
}

// Load reads a TOML configuration file over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("config file not found: %s", path), err)
		}
		return nil, errors.ConfigError("failed to read config", err)
	}
	return Parse(data)
}

// Parse decodes TOML configuration data like Load does for a file.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.ConfigError("failed to parse config", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.ConfigError(fmt.Sprintf("unknown config keys: %s", strings.Join(keys, ", ")), nil)
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigError("invalid config", err)
	}
	return cfg, nil
}

// Write encodes cfg as TOML to path.
func Write(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

// ApplyEnv overrides credentials and the store DSN from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIUser); ok {
		c.API.User = v
	}
	if v, ok := lookup(EnvAPIPassword); ok {
		c.API.Password = v
	}
	if v, ok := lookup(EnvStoreDSN); ok {
		c.Store.DSN = v
	}
}

// Validate checks the configuration against the schema and the
// cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	if err := ValidateSchema(c); err != nil {
		return err
	}
	if err := ValidateBlueprintID(c.Run.BlueprintID); err != nil {
		return err
	}

	switch c.Store.Driver {
	case DriverFS:
		if c.Store.ResultsDir == "" {
			return fmt.Errorf("store.results_dir is required for the fs driver")
		}
	case DriverS3:
		if c.Store.Bucket == "" {
			return fmt.Errorf("store.bucket is required for the s3 driver")
		}
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s driver (or set %s)", c.Store.Driver, EnvStoreDSN)
		}
	}

	seen := make(map[string]bool)
	for _, p := range c.Run.BlueprintParams {
		if seen[p.Name] {
			return fmt.Errorf("duplicate blueprint param %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// ParseParamOverrides splits a shell-quoted list of name=value pairs, e.g.
//
//	size=small "label=load test"
func ParseParamOverrides(s string) ([]Param, error) {
	words, err := shellquote.Split(s)
	if err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	params := make([]Param, 0, len(words))
	for _, w := range words {
		name, value, ok := strings.Cut(w, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid param %q: expected name=value", w)
		}
		params = append(params, Param{Name: name, Value: value})
	}
	return params, nil
}

// MergeParams replaces base values by name and appends new names,
// keeping the base order.
func MergeParams(base, overrides []Param) []Param {
	out := make([]Param, len(base))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[p.Name] = i
	}
	for _, p := range overrides {
		if i, ok := index[p.Name]; ok {
			out[i].Value = p.Value
			continue
		}
		index[p.Name] = len(out)
		out = append(out, p)
	}
	return out
}
