package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/feedboard"
	"github.com/jpalmerr/feedboard/config"
	"github.com/jpalmerr/feedboard/internal/tui"
)

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	logger, closeLog, err := newLogger(cfg, quiet)
	if err != nil {
		return err
	}
	defer closeLog()

	file, err := dataFile(cfg)
	if err != nil {
		return err
	}
	logger.Info("config loaded",
		"feeds", len(cfg.Feeds),
		"data_file", file.Path,
	)

	opts := append(config.BuildOptions(cfg),
		feedboard.WithLogger(logger),
		feedboard.WithPersistence(file),
	)
	app, err := feedboard.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create feedboard: %w", err)
	}

	// cancel on SIGINT/SIGTERM; ctrl+c inside the reader arrives as a key
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer app.Stop()

	err = tui.Run(ctx, app, tui.Options{
		TickRate: cfg.TickRate.Duration(),
		Theme:    tui.ThemeFor(cfg.Theme),
	})
	if err != nil {
		return fmt.Errorf("terminal error: %w", err)
	}
	return nil
}
