package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"brd/internal/console"
	"brd/internal/daemon"
	"brd/internal/logging"
	"brd/internal/store"
)

// shutdownBudget bounds the signal-triggered shutdown (stop, then dump).
const shutdownBudget = 30 * time.Second

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Listen for reports and read operator commands from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, ctx)
		},
	}
}

func runDaemon(cmd *cobra.Command, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), unix.SIGINT, unix.SIGTERM, unix.SIGHUP)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, logCloser, err := ctx.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logCloser.Close() }()
	logger.Info("configuration loaded",
		logging.String(logging.FieldPath, ctx.configPath),
		logging.String(logging.FieldListenAddr, cfg.Listener.Bind),
		logging.Bool("mail_configured", cfg.MailEnabled()))

	d, err := daemon.New(cfg, store.New(), logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	out := cmd.OutOrStdout()
	if res, err := d.Start(signalCtx); err != nil {
		// The console stays up so the operator can fix the port and run start.
		fmt.Fprintf(out, "Failed to start: %v\n", err)
	} else {
		fmt.Fprintf(out, "%s Listening on %s.\n", res.Message, res.Addr)
	}

	c := console.New(d, cmd.InOrStdin(), out)
	runErr := c.Run(signalCtx)
	if errors.Is(runErr, context.Canceled) && signalCtx.Err() != nil {
		logger.Info("signal received, shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownBudget)
		defer done()
		return d.Shutdown(shutdownCtx)
	}
	return runErr
}
