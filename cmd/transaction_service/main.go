package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/transfer-antifraud-saga/internal/config"
	"github.com/transfer-antifraud-saga/internal/data/cache"
	"github.com/transfer-antifraud-saga/internal/data/postgres"
	"github.com/transfer-antifraud-saga/internal/domain/transaction"
	"github.com/transfer-antifraud-saga/internal/logger"
	"github.com/transfer-antifraud-saga/internal/platform/health"
	"github.com/transfer-antifraud-saga/internal/platform/httpserver"
	"github.com/transfer-antifraud-saga/internal/platform/messaging/consumers"
	"github.com/transfer-antifraud-saga/internal/platform/messaging/producers"
	"github.com/transfer-antifraud-saga/internal/platform/metrics"
	"github.com/transfer-antifraud-saga/internal/platform/persistence"
	"github.com/transfer-antifraud-saga/internal/transaction_service/api"
	"github.com/transfer-antifraud-saga/internal/transaction_service/api/handler"
	"github.com/transfer-antifraud-saga/internal/transaction_service/consumer"
	"github.com/transfer-antifraud-saga/internal/transaction_service/outbox_poller"
	"github.com/transfer-antifraud-saga/internal/transaction_service/service"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("transaction_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	log.Info("Starting Transaction Service", "app_name", cfg.Application.Name, "env", cfg.Application.Env)

	m := metrics.New(cfg.Application.Name)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// The read cache is optional: without Redis every read goes to PostgreSQL.
	var txCache transaction.Cache = cache.Nop{}
	healthChecks := map[string]health.Check{"postgres": postgresDB.Ping}
	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, running without read cache", "error", err)
	} else {
		txCache = cache.NewTransactionCache(log.With("component", "cache"), redisClient, cfg.Redis.CacheTTL, cfg.Redis.Timeout)
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	eventProducer, err := producers.NewEventProducer(log, &cfg.Kafka, cfg.Kafka.CreatedTopic, cfg.Kafka.StatusTopic)
	if err != nil {
		log.Error("Failed to initialize Kafka event producer", "error", err)
		os.Exit(1)
	}
	dlqProducer, err := producers.NewDLQProducer(log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	referenceRepo := postgres.NewReferenceRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	creationService := service.NewCreationService(postgresDB, transactionRepo, referenceRepo, outboxRepo, txCache, m, cfg.Kafka.CreatedTopic, log)
	queryService := service.NewQueryService(transactionRepo, txCache, m, log)

	var coordinator service.StatusCoordinator = service.NewStatusCoordinator(postgresDB, transactionRepo, referenceRepo, txCache, m, log)
	workerPool, err := service.NewWorkerPoolCoordinator(coordinator, cfg.WorkerPool.Size, m, log.With("component", "worker_pool"))
	if err != nil {
		log.Error("Failed to create worker pool, applying verdicts inline", "error", err)
	} else {
		coordinator = workerPool
		log.Info("Created worker pool status coordinator", "pool_size", cfg.WorkerPool.Size)
	}

	statusHandler := consumer.NewStatusEventHandler(log, coordinator)
	statusConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.StatusTopic, dlqProducer, m)

	relay := outbox_poller.NewKafkaEventRelay(outboxRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, relay, m, log.With("component", "outbox_poller"))

	router := api.NewRouter(log, cfg.Application.Env == "production", api.Dependencies{
		Transactions:   handler.NewTransactionHandler(creationService, queryService, log),
		Health:         health.NewHandler(cfg.Application.Name, cfg.Redis.Timeout*4, healthChecks),
		Metrics:        m.Handler(),
		RequestMetrics: m,
	})
	server := httpserver.NewServer(log, &cfg.Server, router)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if err := statusConsumer.Subscribe(appCtx, statusHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case serviceErr = <-errChan:
		log.Error("Service error occurred", "error", serviceErr)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop taking requests before the background loops go away.
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}

	cancelAppCtx()

	if workerPool != nil {
		workerPool.Shutdown(10 * time.Second)
	}

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()
	select {
	case <-wgChan:
		log.Info("All background loops stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err := statusConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka event producer", "error", err)
	}
	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}
	postgresDB.Close()

	if serviceErr != nil {
		log.Error("Transaction Service shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Transaction Service shutdown completed successfully")
}
