package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/config"
	errwrap "github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/errors"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/server"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// ailinkHealthChecker reports whether every workflow role resolves to an
// enabled provider with a driver. It does not call the provider; the image
// tier skips model resolution.
type ailinkHealthChecker struct {
	service *ailink.Service
	roles   []string
}

func (a ailinkHealthChecker) CheckHealth(ctx context.Context) error {
	if a.service == nil {
		return errwrap.NewConfigInvalidError("ai service not configured")
	}
	for _, role := range a.roles {
		if _, err := a.service.Providers.Resolve(role, nil, "", "image"); err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "no provider for role "+role)
		}
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload config and log the result (restart to apply)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (default server.host)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "server port (default server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()

	serverOverrides := map[string]any{}
	if serverHost != "" {
		serverOverrides["host"] = serverHost
	}
	if serverPort != 0 {
		serverOverrides["port"] = serverPort
	}
	overrides := map[string]any{}
	if len(serverOverrides) > 0 {
		overrides["server"] = serverOverrides
	}
	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "config load failed")
	}

	logLevel := cfg.Logging.Level
	if verbose {
		logLevel = "debug"
	}
	if err := observability.InitServerLogger(identity.BinaryName, logLevel, namespace); err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "server logger initialization failed")
	}
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port, namespace); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
	}

	deps, err := buildStudio(ctx, true)
	if err != nil {
		return errwrap.WrapInternal(ctx, err, "studio initialization failed")
	}

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("store_driver", deps.Store.Driver()),
		zap.Bool("ai_configured", deps.AI != nil))

	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	hm.Register("store", handlers.CheckerFunc(deps.Store.Ping), handlers.Required)
	hm.Register("ailink", ailinkHealthChecker{
		service: deps.AI,
		roles:   []string{cfg.Studio.DecomposeRole, cfg.Studio.ImageRole},
	}, handlers.Optional)
	if cfg.Metrics.Enabled {
		hm.Register("telemetry", telemetryHealthChecker{}, handlers.Optional)
	}
	handlers.SetAppIdentity(identity)

	srv := server.New(cfg.Server, deps.Studio)

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Handlers run LIFO: the HTTP server stops first, the logger flushes last.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		deps.Close()
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: reloading config")
		if _, err := config.Load(ctx, overrides); err != nil {
			logger.Error("Failed to reload config", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		logger.Info("Configuration reloaded; restart to apply server and provider changes")
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	hm.MarkStarted()

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}
