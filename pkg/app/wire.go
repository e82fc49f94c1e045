package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/flemzord/convo/internal/config"
	"github.com/flemzord/convo/internal/history"
	"github.com/flemzord/convo/internal/history/sqlitestore"
	"github.com/flemzord/convo/internal/pathmap"
	"github.com/flemzord/convo/internal/session"
	"github.com/flemzord/convo/internal/telemetry"
	"github.com/spf13/afero"
)

// Components is the wired session core: the history store, the live
// session manager and their metrics.
type Components struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics
	Store    *history.Store
	Sessions *session.Manager

	closers []io.Closer
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}

// Wire opens the configured history backend and builds the session core
// on top of it. The caller must Close the result.
func Wire(cfg *config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{
		Config:  cfg,
		Logger:  logger,
		Metrics: telemetry.NewMetrics(),
	}

	persister, err := c.openPersister(cfg.History)
	if err != nil {
		return nil, err
	}

	c.Store = history.Open(persister,
		history.WithLogger(logger),
		history.WithMaxEntries(cfg.History.MaxEntries),
		history.WithDefaultLimit(cfg.History.DefaultLimit),
		history.WithPersistFailureHook(c.Metrics.PersistFailure),
	)
	c.Sessions = session.NewManager(pathmap.New(), c.Store,
		session.WithLogger(logger),
		session.WithMetrics(c.Metrics),
	)

	logger.Debug("history opened",
		"backend", cfg.History.Backend,
		"path", cfg.History.Path,
	)
	return c, nil
}

func (c *Components) openPersister(cfg config.HistoryConfig) (history.Persister, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		p, err := sqlitestore.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening history database: %w", err)
		}
		c.closers = append(c.closers, p)
		return p, nil
	case config.BackendJSON, "":
		return history.NewFilePersister(afero.NewOsFs(), cfg.Path), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}

// Close releases the history backend.
func (c *Components) Close() error {
	var errs []error
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
