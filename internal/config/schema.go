// Package config handles YAML configuration loading, environment variable
// expansion, defaults, and structural validation for convo.
package config

import "time"

// History backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Log      LogConfig      `yaml:"log"`
	History  HistoryConfig  `yaml:"history"`
	Sessions SessionsConfig `yaml:"sessions"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is text or json. Defaults to text.
	Format string `yaml:"format"`
}

// HistoryConfig controls the durable conversation history.
type HistoryConfig struct {
	// Backend is "json" (single document, default) or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the backing file. Defaults to DefaultHistoryPath for the backend.
	Path string `yaml:"path"`

	// MaxEntries caps each chat's history. Defaults to 20.
	MaxEntries int `yaml:"max_entries"`

	// DefaultLimit is the number of entries listed when none is requested.
	DefaultLimit int `yaml:"default_limit"`
}

// SessionsConfig controls the live session cache.
type SessionsConfig struct {
	// IdleTimeout drops live sessions idle for longer. Zero disables pruning.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// PruneSchedule is the cron expression of the prune job.
	PruneSchedule string `yaml:"prune_schedule"`
}

// GatewayConfig controls the admin HTTP gateway.
type GatewayConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures authentication for admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// TracingConfig controls the OTLP trace exporter. An empty endpoint
// disables tracing.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}
