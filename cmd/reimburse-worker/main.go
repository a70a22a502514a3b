package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"reimburse/internal/amqp"
	"reimburse/internal/backend"
	"reimburse/internal/cli"
	"reimburse/internal/log"
	"reimburse/internal/services"
	"reimburse/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting reimburse-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration invalid",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sheet, err := backend.NewFactory(logger).ClaimSheet(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize export sheet",
			log.FieldError, err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := worker.NewExportWorker(
		services.NewClaimService(repo, nil, logger.WithComponent(log.ComponentClaims)),
		services.NewReportService(repo, logger.WithComponent(log.ComponentReports)),
		sheet,
		logger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Claims submitted or paid while the worker was down.
		if err := exporter.StartupExportCheck(gctx); err != nil {
			logger.Error("Startup export check failed", log.FieldError, err)
		}
		return amqpClient.ConsumeClaimEvents(gctx, exporter.HandleClaimEvent)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker", log.FieldOperation, log.OpShutdown)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
