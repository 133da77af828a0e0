package main

import (
	"context"
	"errors"
	"os"
	"time"

	"quarra/internal/amqp"
	"quarra/internal/cli"
	"quarra/internal/config"
	"quarra/internal/services"
	"quarra/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" && cfg.RefreshSchedule == "" {
		logger.Error("Nothing to do: set AMQP_URL, REFRESH_SCHEDULE or both")
		os.Exit(1)
	}

	logger.Info("Starting quarra-worker")
	catalog := cli.LoadCatalog(logger, cfg.SeriesConfigFile)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	importWorker := worker.NewImportWorker(
		services.NewImportService(repo),
		catalog.Layout(),
		cfg.WorkbookPath,
		cfg.ImportTimeout,
	)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
	})

	if cfg.RefreshSchedule != "" {
		if err := importWorker.StartSchedule(ctx, cfg.RefreshSchedule); err != nil {
			logger.Error("Failed to start refresh schedule", "error", err)
			os.Exit(1)
		}
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeImportRequests(ctx, importWorker.HandleImportRequest)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Import request consumption failed", "error", err)
				os.Exit(1)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("quarra-worker stopped")
}
