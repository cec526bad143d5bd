package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/text/language"

	"saldo/internal/cache"
	"saldo/internal/cli"
	apphttp "saldo/internal/http"
	"saldo/internal/log"
	"saldo/internal/services"
	gsheet "saldo/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	res := cli.OpenBackend(ctx, logger, cfg)

	reports := services.NewReportService(res.Store, res.Store, services.ReportConfig{
		DefaultCycle: cfg.CycleConfig(),
		CacheSize:    cfg.CacheSize,
		CacheTTL:     cfg.CacheTTL,
	}, logger)

	// Without a publisher the service imports uploads inline.
	var publisher services.EventPublisher
	if client := cli.ConnectAMQP(logger, cfg); client != nil {
		publisher = client
	}
	txs := services.NewTransactionService(res.Store, publisher, reports, logger)

	// With no broker there is no worker, so the mirror runs in-process.
	var syncer *services.SyncProcessor
	if cfg.GoogleSpreadsheetID != "" && publisher == nil {
		mirror, err := gsheet.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", log.FieldError, err)
			os.Exit(1)
		}
		syncer = services.NewSyncProcessor(res.Store, res.Store, mirror, services.SyncProcessorConfig{
			PollInterval: cfg.SyncInterval,
			BatchSize:    cfg.SyncBatchSize,
		}, logger)
		if err := syncer.Start(ctx); err != nil {
			logger.Error("Failed to start sync processor", log.FieldError, err)
			os.Exit(1)
		}
	}

	caches := cache.NewManager(logger)
	caches.Register(reports.Cache())
	caches.StartCleanup(ctx, cfg.CacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Transactions:   txs,
		Reports:        reports,
		Ready:          res.Ready,
		Locale:         language.Make(cfg.Locale),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if syncer != nil {
			if err := syncer.Stop(ctx); err != nil {
				logger.Error("Sync processor shutdown error", log.FieldError, err)
			}
		}
		caches.Stop()
		if err := txs.Close(); err != nil {
			logger.Error("Event publisher shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting saldo",
		log.FieldAddr, srv.Addr,
		log.FieldBackend, cfg.DataBackend,
		log.FieldClosingDay, cfg.CycleConfig().Day(),
		"events", publisher != nil)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", log.FieldError, err)
		os.Exit(1)
	}

	<-shutdownCtx.Done()
	<-done
}
