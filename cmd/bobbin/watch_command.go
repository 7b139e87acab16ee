package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"bobbin/internal/daemon"
	"bobbin/internal/ipc"
	"bobbin/internal/logging"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the runtime log directory in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchProcess(cmd, ctx, quiet)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print ingested events to stdout")
	return cmd
}

func runWatchProcess(cmd *cobra.Command, ctx *commandContext, quiet bool) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "bobbin.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}

	srv, err := ipc.NewServer(signalCtx, ctx.socketPath(), d, logger)
	if err != nil {
		d.Stop()
		return fmt.Errorf("start IPC server: %w", err)
	}
	srv.Serve()

	if !quiet {
		go printLiveEvents(signalCtx, cmd.OutOrStdout(), d)
	}

	select {
	case <-signalCtx.Done():
		logger.Info("shutdown signal received")
	case <-d.ShutdownRequested():
		logger.Info("shutdown requested over IPC")
	}

	// Release the event printer before teardown; an IPC-initiated stop
	// leaves the signal context alive.
	cancel()
	srv.Close()
	d.Stop()
	return nil
}

// printLiveEvents follows the hub and prints each ingested event. It exits
// when the context ends or the daemon stops.
func printLiveEvents(ctx context.Context, out io.Writer, d *daemon.Daemon) {
	colorize := shouldColorize(out)
	var cursor uint64
	for {
		entries, next, err := d.Events(ctx, cursor, 100, true)
		for _, entry := range entries {
			fmt.Fprintln(out, renderEventLine(entry.Event, colorize))
		}
		if err != nil {
			return
		}
		cursor = next
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
