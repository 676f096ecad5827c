package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/relayboard"
	"github.com/jpalmerr/relayboard/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the RelayBoard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay server",
	Long: `Start the RelayBoard relay server.

The server will:
  - Load a .env file from the working directory if one exists
  - Load configuration from the YAML file if one is given
  - Serve the ingest API, history reads and push streams on the configured port

Without a config file the server listens on $PORT (or 3000) with defaults.
It runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  relayboard serve
  relayboard serve -c relay.yaml
  relayboard serve --config /etc/relayboard/relay.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (optional)")
	serveCmd.Flags().String("env-file", ".env", "dotenv file loaded before the config")
}

// loadConfig loads the env file (if present) and then the config file, or
// the defaults when no config file is given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		// existing environment variables win over the file
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return config.Parse(nil)
	}
	return config.Load(configFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := cfg.NewLogger(os.Stderr)

	logger.Info("config loaded",
		"coordinate_limit", cfg.History.CoordinateLimit,
		"sse", cfg.Push.SSE,
		"websocket", cfg.Push.WebSocket,
		"metrics", cfg.Metrics.Enabled,
	)
	logger.Info("starting server",
		"port", cfg.Port,
		"allowed_origin", cfg.HTTP.AllowedOrigin,
	)

	rb, err := relayboard.New(config.BuildOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create RelayBoard: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- rb.Start(ctx)
	}()

	// wait for server to finish
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
