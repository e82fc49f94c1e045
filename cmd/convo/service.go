package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/flemzord/convo/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts app.Run to the service manager lifecycle.
type program struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
	logger service.Logger
}

// Start implements service.Interface. It must not block.
func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		err := app.Run(ctx, p.params)
		if err != nil && ctx.Err() == nil && p.logger != nil {
			_ = p.logger.Error(err)
		}
		p.done <- err
	}()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

func serviceConfig(params app.RunParams) (*service.Config, error) {
	args := []string{"serve"}
	if params.ConfigPath != "" {
		abs, err := filepath.Abs(params.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		args = append(args, "--config", abs)
	}
	return &service.Config{
		Name:        "convo",
		DisplayName: "convo session manager",
		Description: "Admin gateway and idle-session pruner for chat conversations.",
		Arguments:   args,
		// Runs under the invoking user so the home directory resolves.
		Option: service.KeyValue{"UserService": true},
	}, nil
}

func newService(params app.RunParams) (service.Service, error) {
	cfg, err := serviceConfig(params)
	if err != nil {
		return nil, err
	}
	prg := &program{params: params}
	svc, err := service.New(prg, cfg)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if logger, err := svc.Logger(nil); err == nil {
		prg.logger = logger
	}
	return svc, nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage convo as a background user service",
	}
	for _, action := range []struct{ name, short, done string }{
		{"install", "Install the user service", "installed"},
		{"uninstall", "Remove the user service", "uninstalled"},
		{"start", "Start the installed service", "started"},
		{"stop", "Stop the running service", "stopped"},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   action.name,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(app.RunParams{ConfigPath: configPath(cmd), Version: version})
				if err != nil {
					return err
				}
				if err := service.Control(svc, action.name); err != nil {
					return fmt.Errorf("service %s: %w", action.name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service %s.\n", action.done)
				return nil
			},
		})
	}
	return cmd
}
