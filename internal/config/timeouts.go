package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Command           time.Duration // Bound on a single remote command once issued
	Dial              time.Duration // Bound on TCP connect plus SSH handshake
	RetryMaxAttempts  int           // Additional connection attempts per command
	RetryInitialDelay time.Duration // Initial delay between connection attempts
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - PVECFG_TIMEOUT_COMMAND (default: 5m)
//   - PVECFG_TIMEOUT_DIAL (default: 10s)
//   - PVECFG_RETRY_MAX_ATTEMPTS (default: 2)
//   - PVECFG_RETRY_INITIAL_DELAY (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Command:           parseDuration("PVECFG_TIMEOUT_COMMAND", 5*time.Minute),
		Dial:              parseDuration("PVECFG_TIMEOUT_DIAL", 10*time.Second),
		RetryMaxAttempts:  parseInt("PVECFG_RETRY_MAX_ATTEMPTS", 2),
		RetryInitialDelay: parseDuration("PVECFG_RETRY_INITIAL_DELAY", 2*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
