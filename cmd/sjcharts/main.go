package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"sjcharts/internal/backend"
	"sjcharts/internal/cache"
	"sjcharts/internal/cli"
	apphttp "sjcharts/internal/http"
	applog "sjcharts/internal/log"
	"sjcharts/internal/services"
	"sjcharts/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(os.Getenv("LOG_LEVEL")))
	logger := cli.SetupLogger(cfg.LogLevel)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create data backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	dashboard := services.NewDashboardService(result.Backend, services.Options{
		TTL:         cfg.DataCacheTTL,
		LoadTimeout: cfg.DataFetchTimeout,
		Backend:     cfg.DataBackend,
		Logger:      logger,
	})

	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	for name, c := range dashboard.Cleaners() {
		cacheManager.Register(name, c)
	}
	cacheManager.StartCleanup(10 * time.Minute)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Dashboard:      dashboard,
		Logger:         logger,
		RateLimitRPM:   cfg.RateLimitRPM,
		TrustedProxies: cfg.TrustedProxies,
		TableMaxRows:   cfg.TableMaxRows,
		DataLink:       cfg.DataLink,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	// Pages render a failure state until the data can be loaded.
	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), 2*cfg.DataFetchTimeout)
		defer cancel()
		if err := dashboard.Warm(warmCtx); err != nil {
			logger.Warn("Startup warm-up failed", applog.FieldError, err, applog.FieldOperation, applog.OpWarm)
		}
	}()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	go worker.NewRefreshWorker(dashboard, cfg.DataRefreshInterval, logger).Start(ctx)

	logger.Info("Starting sjcharts server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
