package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ganot/oncall-mcp/internal/config"
	"github.com/ganot/oncall-mcp/internal/transport"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand(run).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, opts cliOptions) error {
	cfg, err := config.LoadWith(config.Overrides{Transport: opts.Transport, Port: opts.Port})
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, closeLog, err := newLogger(cfg.Log.Level, cfg.Log.Path, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("log file error: %w", err)
	}
	defer closeLog()
	for _, w := range cfg.Warnings {
		logger.Warn("configuration value ignored", "detail", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	adapters, err := app.Adapters(cfg, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	logger.Info("starting", "transport", cfg.Transport.Mode, "version", version, "tools", app.ToolCount())
	return transport.NewSupervisor(logger).Run(ctx, adapters...)
}
