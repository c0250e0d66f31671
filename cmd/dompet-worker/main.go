package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/cli"
	applog "dompet/internal/log"
	"dompet/internal/ports"
	gsheet "dompet/internal/sheets/google"
	memsheet "dompet/internal/sheets/memory"
	"dompet/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, "worker")

	logger.Info("Starting dompet-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	var exporter ports.LedgerExporter
	if cfg.GoogleSpreadsheetID != "" {
		creds, err := cfg.GoogleCredentials()
		if err != nil {
			logger.Error("Failed to read Google credentials", applog.FieldError, err)
			os.Exit(1)
		}
		sheets, err := gsheet.New(ctx, creds, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.Location())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		if err := sheets.EnsureHeader(ctx); err != nil {
			// Not fatal: appends still work and the header can be added by hand.
			logger.Warn("Failed to ensure sheet header", applog.FieldError, err)
		}
		exporter = sheets
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		exporter = memsheet.New(cfg.GoogleSheetName)
		logger.Warn("GOOGLE_SPREADSHEET_ID not set - exporting to an in-memory sheet")
	}

	syncWorker := worker.NewSyncWorker(repo, exporter, cfg.SyncBatchSize)

	// Catch up on anything left pending while the worker was down.
	if _, err := syncWorker.ProcessPending(ctx); err != nil {
		logger.Error("Startup sweep failed", applog.FieldError, err)
	}

	var (
		wg         sync.WaitGroup
		amqpClient *amqp.Client
		err        error
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := amqpClient.Consume(ctx, syncWorker.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
				stop()
			}
		}()
	} else {
		logger.Info("AMQP disabled - relying on scheduled sweeps only")
	}

	scheduler, err := worker.NewScheduler(ctx, cfg.SyncSchedule, logger, func(ctx context.Context) {
		if _, err := syncWorker.ProcessPending(ctx); err != nil {
			logger.Error("Scheduled sweep failed", applog.FieldError, err)
		}
	})
	if err != nil {
		logger.Error("Failed to create sweep scheduler", applog.FieldError, err)
		os.Exit(1)
	}
	scheduler.Start()

	<-ctx.Done()

	err = cli.RunShutdown(logger, 30*time.Second,
		func(ctx context.Context) error {
			scheduler.Stop(ctx)
			return nil
		},
		func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		func(context.Context) error {
			if amqpClient == nil {
				return nil
			}
			return amqpClient.Close()
		},
		func(context.Context) error {
			return repo.Close()
		},
	)
	if err != nil {
		os.Exit(1)
	}
}
