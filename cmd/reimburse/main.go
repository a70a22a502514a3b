package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"reimburse/internal/amqp"
	"reimburse/internal/cli"
	apphttp "reimburse/internal/http"
	"reimburse/internal/log"
	"reimburse/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	svc := apphttp.Services{
		Expenses: services.NewExpenseService(repo, nil, logger.WithComponent(log.ComponentLedger)),
		Projects: services.NewProjectService(repo, nil, logger.WithComponent(log.ComponentProjects)),
		Claims:   services.NewClaimService(repo, nil, logger.WithComponent(log.ComponentClaims)),
		Payments: services.NewPaymentService(repo, nil, logger.WithComponent(log.ComponentPayments)),
		Reports:  services.NewReportService(repo, logger.WithComponent(log.ComponentReports)),
	}

	// Claim events stay in the outbox until a broker is configured and
	// reachable; the API never depends on it.
	var (
		amqpClient *amqp.Client
		relay      *services.OutboxRelay
	)
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("AMQP unavailable, claim events will wait in the outbox",
				log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
		} else {
			amqpClient = client
			relayCfg := services.DefaultOutboxRelayConfig()
			relayCfg.PollInterval = cfg.OutboxInterval
			relayCfg.BatchSize = cfg.OutboxBatchSize
			relay = services.NewOutboxRelay(repo, amqpClient, nil, relayCfg, logger.WithComponent(log.ComponentOutbox))
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		DefaultUserID: cfg.DefaultUserID,
		Ready:         repo.Ping,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if relay != nil {
			if err := relay.Stop(ctx); err != nil {
				logger.Error("Outbox relay stop error", log.FieldError, err)
			}
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
	})

	if relay != nil {
		if err := relay.Start(ctx); err != nil {
			logger.Error("Failed to start outbox relay", log.FieldError, err)
		}
	}

	logger.Info("Starting reimburse server", "port", cfg.Port, "amqp", cfg.AMQPEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
