package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minMaxRetries      = 0
	maxMaxRetries      = 10
	minWorkers         = 1
	maxWorkers         = 100
	minAPITimeout      = 1 * time.Second
	minDrainInterval   = 1 * time.Millisecond
	minPollInterval    = 10 * time.Second
	minShutdownWait    = 1 * time.Second
	maxRateLimitPerSec = 100.0
)

// Validate checks all configuration values and returns every error found.
// It accumulates rather than stopping at the first, so users see a complete
// report and can fix everything in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateCheck(&cfg.Check)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateAPI(a *APIConfig) []error {
	var errs []error

	if u, err := url.Parse(a.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url: %q is not an absolute URL", a.BaseURL))
	}

	if d, err := time.ParseDuration(a.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("timeout: %w", err))
	} else if d < minAPITimeout {
		errs = append(errs, fmt.Errorf("timeout: must be at least %s, got %s", minAPITimeout, d))
	}

	if a.MaxRetries < minMaxRetries || a.MaxRetries > maxMaxRetries {
		errs = append(errs, fmt.Errorf("max_retries: must be between %d and %d, got %d",
			minMaxRetries, maxMaxRetries, a.MaxRetries))
	}

	if d, err := time.ParseDuration(a.InitialDelay); err != nil {
		errs = append(errs, fmt.Errorf("initial_delay: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("initial_delay: must be positive, got %s", d))
	}

	if a.RateLimit < 0 || a.RateLimit > maxRateLimitPerSec {
		errs = append(errs, fmt.Errorf("rate_limit: must be between 0 and %g requests/s, got %g",
			maxRateLimitPerSec, a.RateLimit))
	}

	return errs
}

func validateCheck(c *CheckConfig) []error {
	var errs []error

	if d, err := time.ParseDuration(c.PollInterval); err != nil {
		errs = append(errs, fmt.Errorf("poll_interval: %w", err))
	} else if d < minPollInterval {
		errs = append(errs, fmt.Errorf("poll_interval: must be at least %s, got %s", minPollInterval, d))
	}

	if c.MaxWorkers < minWorkers || c.MaxWorkers > maxWorkers {
		errs = append(errs, fmt.Errorf("max_workers: must be between %d and %d, got %d",
			minWorkers, maxWorkers, c.MaxWorkers))
	}

	if d, err := time.ParseDuration(c.DrainInterval); err != nil {
		errs = append(errs, fmt.Errorf("drain_interval: %w", err))
	} else if d < minDrainInterval {
		errs = append(errs, fmt.Errorf("drain_interval: must be at least %s, got %s", minDrainInterval, d))
	}

	if d, err := time.ParseDuration(c.SaveDelay); err != nil {
		errs = append(errs, fmt.Errorf("save_delay: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("save_delay: must be positive, got %s", d))
	}

	if d, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("shutdown_timeout: %w", err))
	} else if d < minShutdownWait {
		errs = append(errs, fmt.Errorf("shutdown_timeout: must be at least %s, got %s", minShutdownWait, d))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("level: must be debug, info, warn, or error, got %q", l.Level))
	}

	switch l.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("format: must be auto, text, or json, got %q", l.Format))
	}

	return errs
}
