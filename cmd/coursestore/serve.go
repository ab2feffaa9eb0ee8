package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/coursestore"
	"github.com/jpalmerr/coursestore/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates the CLI logger described by cfg.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// serveCmd starts the coursestore HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cache server",
	Long: `Start the coursestore cache server.

The server will:
  - Load configuration from the specified YAML file
  - Load the course collection from the remote API
  - Serve the cache, loading flag and error messages on the configured port

With --watch, changes to the config file trigger a reload of the
collection. Port and API changes still require a restart.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  coursestore serve -c config.yaml
  coursestore serve --config /etc/coursestore/config.yaml --watch`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().Bool("watch", false, "reload the collection when the config file changes")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	watch, _ := cmd.Flags().GetBool("watch")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting server",
		"port", cfg.Port,
		"api_url", cfg.API.URL,
		"timeout", cfg.API.Timeout.Duration().String(),
	)

	opts := append(config.BuildOptions(cfg), coursestore.WithLogger(logger))
	app, err := coursestore.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create coursestore: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watch {
		go watchConfig(ctx, configFile, app, logger)
	}

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// watchConfig reloads the collection whenever the config file changes.
func watchConfig(ctx context.Context, path string, app *coursestore.App, logger *slog.Logger) {
	err := config.Watch(ctx, path, func(cfg *config.Config) {
		if cfg.Port != app.Port() {
			logger.Warn("port change requires a restart", "current", app.Port(), "configured", cfg.Port)
		}

		reloadCtx, cancel := context.WithTimeout(ctx, cfg.API.Timeout.Duration()+time.Second)
		defer cancel()
		if _, err := app.Store().Reload(reloadCtx); err != nil {
			// already reported on the message bus
			logger.Debug("reload after config change failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("config watcher stopped", "error", err)
	}
}
