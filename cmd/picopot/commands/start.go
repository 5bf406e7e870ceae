package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BERBARIANKING/fosscomm-2024/internal/logger"
	"github.com/BERBARIANKING/fosscomm-2024/internal/telemetry"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/adapter/telnet"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/api"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/config"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/metrics"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/runtime"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/vfs"

	// Import prometheus metrics to register init() functions
	_ "github.com/BERBARIANKING/fosscomm-2024/pkg/metrics/prometheus"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the honeypot",
	Long: `Start the TELNET honeypot in the foreground.

Without a configuration file the built-in defaults are used: port 2323,
credentials admin/password and an in-memory event journal.

Examples:
  # Start with the default config location
  picopot start

  # Start with a custom config file
  picopot start --config /etc/picopot/config.yaml

  # Listen on the standard TELNET port
  PICOPOT_TELNET_PORT=23 picopot start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Write the process ID to this file")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "picopot",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "picopot",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.Profiling.Enabled {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// The registry must exist before the adapter asks for its metrics.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	rt, adapter, err := buildRuntime(cfg)
	if err != nil {
		return err
	}

	if cfg.Filesystem.Watch && cfg.Filesystem.TreeFile != "" {
		go func() {
			if err := vfs.Watch(ctx, cfg.Filesystem.TreeFile, adapter.SetTree); err != nil {
				logger.Error("Filesystem tree watcher stopped", logger.KeyError, err)
			}
		}()
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- rt.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Honeypot is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Shutdown error", logger.KeyError, err)
			return err
		}
		logger.Info("Honeypot stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error", logger.KeyError, err)
			return err
		}
		logger.Info("Honeypot stopped")
	}

	return nil
}

// buildRuntime wires the event store, the TELNET adapter and the HTTP
// servers. The store is closed here on failure and by the runtime otherwise.
func buildRuntime(cfg *config.Config) (rt *runtime.Runtime, adapter *telnet.Adapter, err error) {
	store, err := events.New(&cfg.Events)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event store: %w", err)
	}
	defer func() {
		if err != nil {
			_ = store.Close()
		}
	}()
	logger.Info("Event store opened", "type", cfg.Events.Type)

	sessionCfg, err := cfg.SessionConfig()
	if err != nil {
		return nil, nil, err
	}

	adapter, err = telnet.New(cfg.TelnetConfig(), sessionCfg,
		telnet.WithRecorder(store),
		telnet.WithMetrics(metrics.NewTelnetMetrics()))
	if err != nil {
		return nil, nil, err
	}
	logger.Info("TELNET adapter configured",
		"port", cfg.Telnet.Port,
		"max_connections", cfg.Telnet.MaxConnections,
		"idle_timeout", cfg.Telnet.IdleTimeout)

	rt = runtime.New(adapter, store)
	rt.SetShutdownTimeout(cfg.ShutdownTimeout)

	if cfg.Metrics.Enabled {
		rt.SetMetricsServer(metrics.NewServer(cfg.Metrics.Port))
	} else {
		logger.Info("Metrics collection disabled")
	}

	if cfg.API.IsEnabled() {
		apiServer, err := api.NewServer(cfg.API, api.Deps{
			Store:    store,
			Sessions: adapter,
			Started:  time.Now(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create API server: %w", err)
		}
		rt.SetAPIServer(apiServer)
		if cfg.API.JWTSecret == "" {
			logger.Warn("api.jwt_secret is not set: the journal API is unauthenticated")
		}
	} else {
		logger.Info("API server disabled")
	}

	return rt, adapter, nil
}
