package config

// Default values for configuration options. These are "layer 0" of the
// override chain and work for most users without any config file.
const (
	defaultBaseURL         = "https://www.speedrun.com/api/v1"
	defaultAPITimeout      = "10s"
	defaultMaxRetries      = 3
	defaultInitialDelay    = "1s"
	defaultRateLimit       = 0.0
	defaultPollInterval    = "5m"
	defaultMaxWorkers      = 100
	defaultDrainInterval   = "25ms"
	defaultSaveDelay       = "1s"
	defaultShutdownTimeout = "5s"
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
)

// DefaultConfig returns a Config populated with all default values. It is
// both the starting point for TOML decoding (unset fields keep defaults)
// and the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      defaultBaseURL,
			Timeout:      defaultAPITimeout,
			MaxRetries:   defaultMaxRetries,
			InitialDelay: defaultInitialDelay,
			RateLimit:    defaultRateLimit,
		},
		Check: CheckConfig{
			PollInterval:    defaultPollInterval,
			MaxWorkers:      defaultMaxWorkers,
			DrainInterval:   defaultDrainInterval,
			SaveDelay:       defaultSaveDelay,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
