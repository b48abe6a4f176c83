package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/transfer-antifraud-saga/internal/anti_fraud/api"
	"github.com/transfer-antifraud-saga/internal/anti_fraud/consumer"
	"github.com/transfer-antifraud-saga/internal/anti_fraud/fraud"
	"github.com/transfer-antifraud-saga/internal/anti_fraud/service"
	"github.com/transfer-antifraud-saga/internal/config"
	"github.com/transfer-antifraud-saga/internal/data/mongo"
	"github.com/transfer-antifraud-saga/internal/logger"
	"github.com/transfer-antifraud-saga/internal/platform/health"
	"github.com/transfer-antifraud-saga/internal/platform/httpserver"
	"github.com/transfer-antifraud-saga/internal/platform/messaging/consumers"
	"github.com/transfer-antifraud-saga/internal/platform/messaging/producers"
	"github.com/transfer-antifraud-saga/internal/platform/metrics"
	"github.com/transfer-antifraud-saga/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("anti_fraud_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	log.Info("Starting Anti-Fraud Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"max_transaction_value", cfg.Fraud.MaxTransactionValue.String(),
		"processing_delay", cfg.Fraud.ProcessingDelay.String(),
	)

	m := metrics.New(cfg.Application.Name)

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	verdictRepo := mongo.NewVerdictRepository(log, mongoDB.Database())
	if err := verdictRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create verdict indexes", "error", err)
		os.Exit(1)
	}

	engine, err := fraud.NewEngine(cfg.Fraud, m, log.With("component", "fraud_engine"))
	if err != nil {
		log.Error("Invalid fraud configuration", "error", err)
		os.Exit(1)
	}

	eventProducer, err := producers.NewEventProducer(log, &cfg.Kafka, cfg.Kafka.StatusTopic)
	if err != nil {
		log.Error("Failed to initialize Kafka event producer", "error", err)
		os.Exit(1)
	}
	dlqProducer, err := producers.NewDLQProducer(log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	evaluationService := service.NewEvaluationService(verdictRepo, engine, eventProducer, cfg.Kafka.StatusTopic, log)
	createdHandler := consumer.NewCreatedEventHandler(log, evaluationService)
	createdConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.CreatedTopic, dlqProducer, m)

	healthHandler := health.NewHandler(cfg.Application.Name, cfg.MongoDB.Timeout, map[string]health.Check{
		"mongodb": mongoDB.Ping,
	})
	server := httpserver.NewServer(log, &cfg.Server, api.NewRouter(log, cfg.Application.Env == "production", healthHandler, m.Handler()))

	errChan := make(chan error, 2)

	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if err := createdConsumer.Subscribe(appCtx, createdHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case serviceErr = <-errChan:
		log.Error("Service error occurred", "error", serviceErr)
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}
	if err := createdConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka event producer", "error", err)
	}
	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Anti-Fraud Service shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Anti-Fraud Service shutdown completed successfully")
}
