// Package app provides the shared entry point for the convo binary: config
// discovery, component wiring and the serve loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/flemzord/convo/internal/config"
	"github.com/flemzord/convo/internal/cron"
	"github.com/flemzord/convo/internal/gateway"
	"github.com/flemzord/convo/internal/telemetry"
)

// RunParams configures the serve loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.ResolveConfigPath is tried and defaults are used
	// when nothing is found.
	ConfigPath string

	// Version is injected at build time via ldflags.
	Version string
}

// LoadConfig loads and validates the configuration. An explicit path must
// exist; otherwise the standard locations are searched and built-in
// defaults apply when none has a file.
func LoadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case path != "":
		cfg, err = config.Load(path)
	default:
		if resolved, rerr := config.ResolveConfigPath(); rerr == nil {
			cfg, err = config.Load(resolved)
		} else {
			cfg = config.Default()
		}
	}
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Run wires the session core, starts the gateway and the idle-session
// pruner as configured, and blocks until ctx is cancelled.
func Run(ctx context.Context, params RunParams) error {
	cfg, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}
	logger, err := NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	comps, err := Wire(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			logger.Error("closing history", "error", err)
		}
	}()

	tp, shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingOptions{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return err
	}
	stoppers := []func(context.Context) error{shutdownTracing}

	if cfg.Sessions.IdleTimeout > 0 {
		scheduler := cron.NewScheduler(logger)
		if err := scheduler.Register(&cron.IdleSessionJob{
			Sessions:     comps.Sessions,
			MaxIdle:      cfg.Sessions.IdleTimeout,
			ScheduleExpr: cfg.Sessions.PruneSchedule,
			Logger:       logger,
		}); err != nil {
			return errors.Join(err, stopAll(stoppers))
		}
		if err := scheduler.Start(); err != nil {
			return errors.Join(err, stopAll(stoppers))
		}
		stoppers = append(stoppers, scheduler.Stop)
	}

	if cfg.Gateway.Enabled {
		gw := gateway.New(cfg.Gateway, comps.Sessions, comps.Store,
			gateway.WithLogger(logger),
			gateway.WithMetricsHandler(comps.Metrics.Handler()),
			gateway.WithTracerProvider(tp),
			gateway.WithConfig(cfg),
		)
		if err := gw.Start(ctx); err != nil {
			return errors.Join(err, stopAll(stoppers))
		}
		stoppers = append(stoppers, gw.Stop)
	}

	logger.Info("convo started",
		"version", params.Version,
		"history_backend", cfg.History.Backend,
		"gateway", cfg.Gateway.Enabled,
		"idle_timeout", cfg.Sessions.IdleTimeout,
	)

	<-ctx.Done()
	logger.Info("shutdown requested")

	if err := stopAll(stoppers); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// stopAll stops components in reverse start order.
func stopAll(stoppers []func(context.Context) error) error {
	ctx := context.Background()
	var errs []error
	for i := len(stoppers) - 1; i >= 0; i-- {
		errs = append(errs, stoppers[i](ctx))
	}
	return errors.Join(errs...)
}
