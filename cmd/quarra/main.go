package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"quarra/internal/backend"
	"quarra/internal/cli"
	"quarra/internal/config"
	apphttp "quarra/internal/http"
	applog "quarra/internal/log"
	"quarra/internal/report"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	catalog := cli.LoadCatalog(logger, cfg.SeriesConfigFile)

	weekEndsOn, _ := config.ParseWeekday(cfg.WeekEndsOn)

	backendCfg, err := backend.FromAppConfig(cfg, catalog)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	appLogger := applog.New(applog.Config{
		Component: applog.ComponentApp,
		Handler:   logger.Handler(),
	})

	var ready apphttp.ReadyFunc
	if res.Check != nil {
		ready = apphttp.ReadyFunc(res.Check)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:                ":" + cfg.Port,
		Builder:             report.NewBuilder(res.Backend, catalog, weekEndsOn),
		ExportRatePerMinute: cfg.ExportRatePerMinute,
		TrustedProxies:      cfg.TrustedProxies,
		Ready:               ready,
		Logger:              appLogger,
	})
	if err != nil {
		logger.Error("Failed to initialize HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting quarra server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"week_ends_on", weekEndsOn.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	slog.Info("Server stopped gracefully")
}
