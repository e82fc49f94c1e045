package config

import (
	"time"

	"github.com/flemzord/convo/internal/history"
)

const (
	defaultPruneSchedule   = "*/5 * * * *"
	defaultBind            = "127.0.0.1:8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// ApplyDefaults fills zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.History.Backend == "" {
		c.History.Backend = BackendJSON
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath(c.History.Backend)
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = history.DefaultMaxEntries
	}
	if c.History.DefaultLimit == 0 {
		c.History.DefaultLimit = history.DefaultLimit
	}

	if c.Sessions.PruneSchedule == "" {
		c.Sessions.PruneSchedule = defaultPruneSchedule
	}

	g := &c.Gateway
	if g.Bind == "" {
		g.Bind = defaultBind
	}
	if g.ReadTimeout <= 0 {
		g.ReadTimeout = defaultReadTimeout
	}
	if g.WriteTimeout <= 0 {
		g.WriteTimeout = defaultWriteTimeout
	}
	if g.ShutdownTimeout <= 0 {
		g.ShutdownTimeout = defaultShutdownTimeout
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = AppName
	}
}
