package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keyhaven/keyhaven/internal/api"
	"github.com/keyhaven/keyhaven/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the keyhaven daemon",
	Long:  "Serve the credential operation API over a Unix socket. The config file is watched and the localization model and cancel policy are reloaded on change.",
	RunE:  runServe,
}

var socketPath string

func init() {
	serveCmd.Flags().StringVar(&socketPath, "socket", "", "Socket path (defaults to socket_path from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := buildStack("api")
	if err != nil {
		return err
	}
	defer s.Close()

	path := socketPath
	if path == "" {
		path = s.cfg.SocketPath
	}
	if path == "" {
		return fmt.Errorf("no socket path configured")
	}

	slog.Info("keyhaven daemon starting", "socket", path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	// Remove stale socket
	os.Remove(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating socket dir: %w", err)
	}

	// Hot-reload the mutable settings on config change.
	go func() {
		if err := config.Watch(ctx, configPath, s.runtime.Apply); err != nil {
			slog.Error("config watcher stopped", "error", err)
		}
	}()

	srv := api.NewServer(s.dispatcher, api.WithAuditTrail(s.auditor))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenUnix(path)
	}()

	slog.Info("keyhaven daemon ready")

	select {
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig)
	case err := <-errCh:
		if err != nil {
			slog.Error("API server error", "error", err)
		}
	}

	cancel()
	srv.Shutdown(context.Background())
	os.Remove(path)

	slog.Info("keyhaven daemon stopped")
	return nil
}
