// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for runpulse. Settings resolve through
// a three-layer override chain: defaults -> config file -> environment and
// CLI flags.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	API     APIConfig     `toml:"api"`
	Check   CheckConfig   `toml:"check"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// APIConfig controls the speedrun.com HTTP client: endpoint, timeouts, and
// the retry and rate-limit policy.
type APIConfig struct {
	BaseURL      string  `toml:"base_url"`
	Timeout      string  `toml:"timeout"`
	MaxRetries   int     `toml:"max_retries"`
	InitialDelay string  `toml:"initial_delay"`
	RateLimit    float64 `toml:"rate_limit"`
}

// CheckConfig controls the check engine: polling cadence, worker ceiling,
// and persistence timing.
type CheckConfig struct {
	PollInterval    string `toml:"poll_interval"`
	MaxWorkers      int    `toml:"max_workers"`
	DrainInterval   string `toml:"drain_interval"`
	SaveDelay       string `toml:"save_delay"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// StorageConfig controls where tracked-run state lives.
type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	DataDir    *string // --data-dir flag
	LogLevel   string  // --log-level flag
}

// Durations are stored as strings so the TOML reads naturally ("5m", "1s")
// and parsed on demand. Validate guarantees they parse, so the accessors
// fall back to the defaults only for a Config that bypassed validation.

func parseDuration(s, fallback string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}

	return d
}

// TimeoutDuration returns the per-request HTTP timeout.
func (c APIConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, defaultAPITimeout)
}

// InitialDelayDuration returns the base retry backoff delay.
func (c APIConfig) InitialDelayDuration() time.Duration {
	return parseDuration(c.InitialDelay, defaultInitialDelay)
}

// PollIntervalDuration returns the watch-mode polling interval.
func (c CheckConfig) PollIntervalDuration() time.Duration {
	return parseDuration(c.PollInterval, defaultPollInterval)
}

// DrainIntervalDuration returns the engine's result-drain tick.
func (c CheckConfig) DrainIntervalDuration() time.Duration {
	return parseDuration(c.DrainInterval, defaultDrainInterval)
}

// SaveDelayDuration returns the persistence debounce delay.
func (c CheckConfig) SaveDelayDuration() time.Duration {
	return parseDuration(c.SaveDelay, defaultSaveDelay)
}

// ShutdownTimeoutDuration returns how long shutdown waits for workers.
func (c CheckConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(c.ShutdownTimeout, defaultShutdownTimeout)
}
