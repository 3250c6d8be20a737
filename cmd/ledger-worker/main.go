package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/jonssons-io/project-yoshi-sub001/internal/amqp"
	"github.com/jonssons-io/project-yoshi-sub001/internal/cache"
	"github.com/jonssons-io/project-yoshi-sub001/internal/cli"
	"github.com/jonssons-io/project-yoshi-sub001/internal/config"
	"github.com/jonssons-io/project-yoshi-sub001/internal/log"
	"github.com/jonssons-io/project-yoshi-sub001/internal/sheets"
	gsheet "github.com/jonssons-io/project-yoshi-sub001/internal/sheets/google"
	"github.com/jonssons-io/project-yoshi-sub001/internal/sheets/memory"
	"github.com/jonssons-io/project-yoshi-sub001/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting ledger-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	// Export target: the Google sheet when configured, otherwise in-memory rows
	var writer sheets.LedgerEventWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		if err := client.EnsureHeader(context.Background()); err != nil {
			logger.Warn("Could not verify ledger sheet header", log.FieldError, err)
		}
		logger.Info("Google Sheets export enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", client.SheetName())
		writer = client
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, keeping rows in memory")
		writer = memory.NewWriter()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	seen := cache.NewLRUCache[struct{}](cfg.DedupeCacheSize, cfg.DedupeTTL)
	caches := cache.NewManager()
	caches.Register(seen)
	caches.StartCleanup(cfg.CacheCleanupInterval)

	exportWorker := worker.NewExportWorker(writer, seen)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		caches.Stop()
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Error closing AMQP client", log.FieldError, err)
		}
		exported, skipped := exportWorker.Stats()
		logger.Info("Ledger worker stopped",
			log.FieldOperation, log.OpShutdown,
			"exported", exported,
			"skipped", skipped)
	})

	go func() {
		err := amqpClient.ConsumeLedgerEvents(ctx, exportWorker.HandleLedgerEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Ledger event consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
