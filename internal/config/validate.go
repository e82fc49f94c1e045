package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/flemzord/convo/internal/history"
	"github.com/robfig/cron/v3"
)

// Validate checks the structural validity of a Config whose defaults have
// been applied. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateHistory(cfg.History)...)
	errs = append(errs, validateSessions(cfg.Sessions)...)
	errs = append(errs, validateGateway(cfg.Gateway)...)

	return errors.Join(errs...)
}

func validateLog(l LogConfig) []error {
	var errs []error
	if _, err := l.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", l.Format))
	}
	return errs
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}

func validateHistory(h HistoryConfig) []error {
	var errs []error
	switch h.Backend {
	case BackendJSON, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: history.backend must be %q or %q, got %q", BackendJSON, BackendSQLite, h.Backend))
	}
	if h.MaxEntries < 0 || h.MaxEntries > history.DefaultMaxEntries {
		errs = append(errs, fmt.Errorf("config: history.max_entries must be between 1 and %d, got %d", history.DefaultMaxEntries, h.MaxEntries))
	}
	if h.DefaultLimit < 0 {
		errs = append(errs, fmt.Errorf("config: history.default_limit must be positive, got %d", h.DefaultLimit))
	}
	return errs
}

func validateSessions(s SessionsConfig) []error {
	var errs []error
	if s.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: sessions.idle_timeout must be non-negative, got %s", s.IdleTimeout))
	}
	if s.IdleTimeout > 0 {
		if _, err := cron.ParseStandard(s.PruneSchedule); err != nil {
			errs = append(errs, fmt.Errorf("config: sessions.prune_schedule: %w", err))
		}
	}
	return errs
}

func validateGateway(g GatewayConfig) []error {
	if !g.Enabled {
		return nil
	}
	var errs []error
	if _, err := net.ResolveTCPAddr("tcp", g.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: gateway.bind: invalid address %q", g.Bind))
	}
	if (g.Auth.BasicUser == "") != (g.Auth.BasicPass == "") {
		errs = append(errs, errors.New("config: gateway.auth: basic_user and basic_pass must be set together"))
	}
	return errs
}
