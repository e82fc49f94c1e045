// Package main is the entry point for the convo CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flemzord/convo/internal/config"
	"github.com/flemzord/convo/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "convo",
		Short:         "Chat-to-conversation session manager for an AI coding assistant bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(versionCmd(), serveCmd(), configCmd(), historyCmd(), serviceCmd())
	return root
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "convo %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin gateway and idle-session pruner until stopped",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := app.RunParams{ConfigPath: configPath(cmd), Version: version}

			if service.Interactive() {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return app.Run(ctx, params)
			}

			svc, err := newService(params)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration OK")
			fmt.Fprintf(out, "  history: %s (%s, max %d entries)\n", cfg.History.Path, cfg.History.Backend, cfg.History.MaxEntries)
			if cfg.Gateway.Enabled {
				fmt.Fprintf(out, "  gateway: %s (auth: %t)\n", cfg.Gateway.Bind, cfg.Gateway.Auth.IsConfigured())
			}
			if cfg.Sessions.IdleTimeout > 0 {
				fmt.Fprintf(out, "  pruning: idle > %s, schedule %q\n", cfg.Sessions.IdleTimeout, cfg.Sessions.PruneSchedule)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file that would be used",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.ResolveConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	return cmd
}

// withComponents loads the configuration, wires the session core and
// calls fn with it.
func withComponents(cmd *cobra.Command, fn func(*app.Components) error) error {
	cfg, err := app.LoadConfig(configPath(cmd))
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	comps, err := app.Wire(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = comps.Close() }()
	return fn(comps)
}

// runContext returns the command context, or Background outside Execute.
func runContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
