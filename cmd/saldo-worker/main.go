package main

import (
	"context"
	"errors"
	"os"
	"time"

	"saldo/internal/cli"
	"saldo/internal/log"
	"saldo/internal/services"
	gsheet "saldo/internal/sheets/google"
	"saldo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting saldo-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != "sqlite" {
		// The memory store lives inside the API process.
		logger.Error("saldo-worker requires DATA_BACKEND=sqlite", log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if !cfg.AMQPEnabled() {
		logger.Error("saldo-worker requires AMQP_URL")
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	res := cli.OpenBackend(ctx, logger, cfg)
	defer res.Cleanup()

	client := cli.ConnectAMQP(logger, cfg)
	if client == nil {
		os.Exit(1)
	}
	defer client.Close()

	// The API notices imported rows through the ledger change version.
	imports := services.NewImportProcessor(res.Store, res.Store, nil, logger)

	var syncer worker.Syncer
	if cfg.GoogleSpreadsheetID != "" {
		mirror, err := gsheet.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		syncer = services.NewSyncProcessor(res.Store, res.Store, mirror, services.SyncProcessorConfig{
			PollInterval: cfg.SyncInterval,
			BatchSize:    cfg.SyncBatchSize,
		}, logger)
		logger.Info("Google Sheets mirror enabled", log.FieldSheetsRef, cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewEventWorker(imports, syncer, cfg.SyncBatchSize, logger)
	go w.RunSweeps(ctx, cfg.SyncInterval)

	if err := client.Consume(ctx, w.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		client.Close()
		res.Cleanup()
		os.Exit(1)
	}
	<-done
}
