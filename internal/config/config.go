// Package config loads the daemon's bootstrap configuration: everything
// needed to open the catalog, start the Refresh Coordinator, and bind the
// HTTP listener. Per-provider settings (headers, user-agent, timeouts) are
// NOT here — those live on catalog.Provider rows, edited through the admin
// surface, not the config file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape this daemon accepts on disk, matching the
// teacher's FileConfig convention of one flat, mostly-optional struct with
// yaml tags and omitempty defaults.
type FileConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
	LogLevel   string `yaml:"logLevel,omitempty"`

	Database DatabaseConfig `yaml:"database,omitempty"`
	Snapshot SnapshotConfig `yaml:"snapshot,omitempty"`
	Refresh  RefreshConfig  `yaml:"refresh,omitempty"`
	Relay    RelayConfig    `yaml:"relay,omitempty"`
}

// DatabaseConfig locates the catalog's SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SnapshotConfig locates the snapshot artifact tree and its retention depth.
type SnapshotConfig struct {
	Directory      string `yaml:"directory,omitempty"`
	RetentionCount int    `yaml:"retentionCount,omitempty"`
}

// RefreshConfig times the Refresh Coordinator's schedule loop and the
// per-run deadline.
type RefreshConfig struct {
	IntervalHours       int `yaml:"intervalHours,omitempty"`
	TimeoutMinutes      int `yaml:"timeoutMinutes,omitempty"`
	StartupDelaySeconds int `yaml:"startupDelaySeconds,omitempty"`
}

// RelayConfig bounds the stream relay's per-provider admission limiter.
type RelayConfig struct {
	RatePerSecond float64 `yaml:"ratePerSecond,omitempty"`
	Burst         int     `yaml:"burst,omitempty"`
}

// Config is the fully-resolved, defaulted configuration the daemon runs
// with — a FileConfig after LoadFileConfig's zero-value defaults and
// ApplyEnvOverrides have both been applied.
type Config struct {
	ListenAddr string
	LogLevel   string

	DatabasePath string

	SnapshotDirectory      string
	SnapshotRetentionCount int

	RefreshInterval     time.Duration
	RefreshTimeout      time.Duration
	RefreshStartupDelay time.Duration

	RelayRatePerSecond float64
	RelayBurst         int
}

// Default returns the configuration a fresh install starts with before any
// file or environment override is applied.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		LogLevel:   "info",

		DatabasePath: "data/lineup.sqlite",

		SnapshotDirectory:      "data/snapshots",
		SnapshotRetentionCount: 3,

		RefreshInterval:     6 * time.Hour,
		RefreshTimeout:      5 * time.Minute,
		RefreshStartupDelay: 10 * time.Second,

		RelayRatePerSecond: 20,
		RelayBurst:         40,
	}
}

// LoadFileConfig reads and parses a YAML config file. A missing path is not
// an error: the daemon can run on defaults plus environment overrides alone.
func LoadFileConfig(path string) (*FileConfig, error) {
	if path == "" {
		return &FileConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &FileConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &fc, nil
}

// Load builds the effective Config: defaults, overridden by path's file
// contents (if any), overridden by environment variables (if set).
func Load(path string) (Config, error) {
	cfg := Default()

	fc, err := LoadFileConfig(path)
	if err != nil {
		return Config{}, err
	}
	applyFileConfig(&cfg, fc)
	ApplyEnvOverrides(&cfg)
	return cfg, nil
}

func applyFileConfig(cfg *Config, fc *FileConfig) {
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.Database.Path != "" {
		cfg.DatabasePath = fc.Database.Path
	}
	if fc.Snapshot.Directory != "" {
		cfg.SnapshotDirectory = fc.Snapshot.Directory
	}
	if fc.Snapshot.RetentionCount != 0 {
		cfg.SnapshotRetentionCount = fc.Snapshot.RetentionCount
	}
	if fc.Refresh.IntervalHours != 0 {
		cfg.RefreshInterval = time.Duration(fc.Refresh.IntervalHours) * time.Hour
	}
	if fc.Refresh.TimeoutMinutes != 0 {
		cfg.RefreshTimeout = time.Duration(fc.Refresh.TimeoutMinutes) * time.Minute
	}
	if fc.Refresh.StartupDelaySeconds != 0 {
		cfg.RefreshStartupDelay = time.Duration(fc.Refresh.StartupDelaySeconds) * time.Second
	}
	if fc.Relay.RatePerSecond != 0 {
		cfg.RelayRatePerSecond = fc.Relay.RatePerSecond
	}
	if fc.Relay.Burst != 0 {
		cfg.RelayBurst = fc.Relay.Burst
	}
}
