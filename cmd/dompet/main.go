package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/auth"
	"dompet/internal/backend"
	"dompet/internal/cache"
	"dompet/internal/cli"
	"dompet/internal/core"
	apphttp "dompet/internal/http"
	applog "dompet/internal/log"
	"dompet/internal/receipt"
	"dompet/internal/receipt/vision"
	"dompet/internal/services"
)

const ledgerCacheSize = 512

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, "api")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", applog.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}

	opts := []services.Option{services.WithLocation(cfg.Location())}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		opts = append(opts, services.WithPublisher(amqpClient))
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - transactions will not be exported")
	}

	ledgerCache := cache.NewLRUCache[core.Ledger](ledgerCacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(ledgerCache)
	cacheManager.StartCleanup(cfg.CacheTTL)
	opts = append(opts, services.WithLedgerCache(ledgerCache))

	txService := services.NewTransactionService(result.Store, logger, opts...)
	authService := auth.NewService(result.Store, cfg.JWTSecret, cfg.JWTTTL, logger)

	var scanner *receipt.Scanner
	if cfg.OCREnabled {
		creds, err := cfg.GoogleCredentials()
		if err != nil {
			logger.Error("Failed to read Google credentials", applog.FieldError, err)
			os.Exit(1)
		}
		recognizer, err := vision.New(context.Background(), creds, logger)
		if err != nil {
			logger.Error("Failed to initialize Vision client", applog.FieldError, err)
			os.Exit(1)
		}
		scanner = receipt.NewScanner(recognizer, receipt.ScannerConfig{
			MaxImageBytes: cfg.OCRMaxImageBytes,
			MaxConcurrent: int64(cfg.OCRMaxConcurrent),
		}, logger)
		logger.Info("Receipt scanning enabled", "max_image_bytes", scanner.MaxImageBytes())
	}

	var ready func(context.Context) error
	if result.Pinger != nil {
		ready = result.Pinger.Ping
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions:       txService,
		Auth:               authService,
		Scanner:            scanner,
		Ready:              ready,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		BlockSuspicious:    cfg.BlockSuspicious,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting dompet server", "port", cfg.Port, "backend", backendCfg.Type, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			exitCode = 1
		}
	}

	shutdownErr := cli.RunShutdown(logger, 30*time.Second,
		srv.Shutdown,
		func(context.Context) error {
			cacheManager.Stop()
			return nil
		},
		func(context.Context) error {
			if amqpClient == nil {
				return nil
			}
			return amqpClient.Close()
		},
		func(context.Context) error {
			if result.Cleanup == nil {
				return nil
			}
			return result.Cleanup()
		},
	)
	if shutdownErr != nil || exitCode != 0 {
		os.Exit(1)
	}
}
