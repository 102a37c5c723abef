package config

import (
	"os"
	"strconv"
	"time"

	"github.com/m3undle/lineup/internal/log"
)

// ParseString reads a string from an environment variable, falling back to
// defaultValue when unset or empty.
func ParseString(key, defaultValue string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	return v
}

// ParseInt reads an integer from an environment variable, falling back to
// defaultValue when unset, empty, or unparseable.
func ParseInt(key string, defaultValue int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		lg := log.WithComponent("config")
		lg.Warn().Str("key", key).Str("value", v).Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	return n
}

// ParseFloat reads a float64 from an environment variable, falling back to
// defaultValue when unset, empty, or unparseable.
func ParseFloat(key string, defaultValue float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		lg := log.WithComponent("config")
		lg.Warn().Str("key", key).Str("value", v).Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	return f
}

// ParseDuration reads a Go duration string (e.g. "5m") from an environment
// variable, falling back to defaultValue when unset, empty, or unparseable.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		lg := log.WithComponent("config")
		lg.Warn().Str("key", key).Str("value", v).Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	return d
}

// ApplyEnvOverrides mutates cfg in place with any LINEUP_* variables present
// in the process environment — the last and highest-precedence tier after
// defaults and the config file.
func ApplyEnvOverrides(cfg *Config) {
	cfg.ListenAddr = ParseString("LINEUP_LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = ParseString("LINEUP_LOG_LEVEL", cfg.LogLevel)
	cfg.DatabasePath = ParseString("LINEUP_DATABASE_PATH", cfg.DatabasePath)
	cfg.SnapshotDirectory = ParseString("LINEUP_SNAPSHOT_DIRECTORY", cfg.SnapshotDirectory)
	cfg.SnapshotRetentionCount = ParseInt("LINEUP_SNAPSHOT_RETENTION_COUNT", cfg.SnapshotRetentionCount)
	cfg.RefreshInterval = ParseDuration("LINEUP_REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.RefreshTimeout = ParseDuration("LINEUP_REFRESH_TIMEOUT", cfg.RefreshTimeout)
	cfg.RefreshStartupDelay = ParseDuration("LINEUP_REFRESH_STARTUP_DELAY", cfg.RefreshStartupDelay)
	cfg.RelayRatePerSecond = ParseFloat("LINEUP_RELAY_RATE_PER_SECOND", cfg.RelayRatePerSecond)
	cfg.RelayBurst = ParseInt("LINEUP_RELAY_BURST", cfg.RelayBurst)
}
