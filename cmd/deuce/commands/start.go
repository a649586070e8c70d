package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/internal/telemetry"
	"github.com/painterjd/deuce/pkg/api"
	"github.com/painterjd/deuce/pkg/blocks"
	"github.com/painterjd/deuce/pkg/config"
	"github.com/painterjd/deuce/pkg/files"
	"github.com/painterjd/deuce/pkg/metrics"
	"github.com/painterjd/deuce/pkg/vaults"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Deuce server",
	Long: `Start the Deuce HTTP API server with the specified configuration.

The server runs in the foreground and shuts down gracefully on SIGINT or
SIGTERM, which makes it suitable for containers and process supervisors.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/deuce/config.yaml.

Examples:
  # Start with the default configuration
  deuce start

  # Start with custom config file
  deuce start --config /etc/deuce/config.yaml

  # Start with environment variable overrides
  DEUCE_LOG_LEVEL=DEBUG deuce start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "deuce",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "deuce",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("Deuce block storage service", "version", Version)
	logger.Info("Log level", "level", cfg.Log.Level, "format", cfg.Log.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Open the metadata store (vaults, blocks, files, manifests)
	metaStore, err := config.CreateMetadataStore(ctx, cfg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to initialize metadata store: %w", err)
	}
	defer func() {
		if err := metaStore.Close(); err != nil {
			logger.Error("Metadata store close error", "error", err)
		}
	}()
	logger.Info("Metadata store ready", "type", cfg.Metadata.Type)

	// Open the storage store (block object bodies)
	storageStore, err := config.CreateStorageStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage store: %w", err)
	}
	defer func() {
		if err := storageStore.Close(); err != nil {
			logger.Error("Storage store close error", "error", err)
		}
	}()
	logger.Info("Storage store ready", "type", cfg.Storage.Type)

	// Wire the domain services over the two stores
	services := api.Services{
		Vaults:  vaults.New(metaStore, storageStore),
		Blocks:  blocks.New(metaStore, storageStore),
		Storage: blocks.NewStorageService(metaStore, storageStore),
		Files:   files.New(metaStore, storageStore),
	}

	apiServer, err := api.NewServer(cfg.APIServer(), services)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	// Start the Prometheus endpoint (if enabled)
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", "error", err)
			}
		}()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Start the API server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for server to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			runErr = err
		} else {
			logger.Info("Server stopped gracefully")
		}

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			runErr = err
		} else {
			logger.Info("Server stopped")
		}
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", "error", err)
		}
	}

	return runErr
}
