package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "RUNPULSE_CONFIG"
	EnvDataDir  = "RUNPULSE_DATA_DIR"
	EnvLogLevel = "RUNPULSE_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // RUNPULSE_CONFIG: override config file path
	DataDir    string // RUNPULSE_DATA_DIR: override state directory
	LogLevel   string // RUNPULSE_LOG_LEVEL: override log level
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. It does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		DataDir:    os.Getenv(EnvDataDir),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}
