package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cartera-loan-servicing/internal/clock"
	"github.com/cartera-loan-servicing/internal/config"
	"github.com/cartera-loan-servicing/internal/data/mongo"
	"github.com/cartera-loan-servicing/internal/data/postgres"
	"github.com/cartera-loan-servicing/internal/domain/catalog"
	"github.com/cartera-loan-servicing/internal/engine/accrual"
	"github.com/cartera-loan-servicing/internal/engine/reconcile"
	"github.com/cartera-loan-servicing/internal/eod_processor/consumer"
	"github.com/cartera-loan-servicing/internal/eod_processor/outbox_poller"
	"github.com/cartera-loan-servicing/internal/logger"
	"github.com/cartera-loan-servicing/internal/platform/messaging/consumers"
	"github.com/cartera-loan-servicing/internal/platform/messaging/producers"
	"github.com/cartera-loan-servicing/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("eod_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting EOD Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	loanRepo := postgres.NewLoanRepository(log, postgresDB)
	obligationRepo := postgres.NewObligationRepository(log, postgresDB)
	catalogRepo := postgres.NewCatalogRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())

	// Initialize Kafka consumer for day-close events
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka producers
	eventProducer, err := producers.NewPaymentEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize payment event Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize the accrual engine and its worker-pool batch
	catalogService := catalog.NewService(catalogRepo, log)
	calendar := clock.NewParameterProvider(catalogRepo, log)
	reconciler := reconcile.NewReconciler(log)
	accrualEngine := accrual.NewEngine(postgresDB, loanRepo, obligationRepo, catalogService, reconciler, log)
	accrualBatch, err := accrual.NewBatch(accrualEngine, loanRepo, cfg.WorkerPool.Size, log)
	if err != nil {
		log.Error("Failed to initialize accrual worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize day-close event handler
	dayCloseHandler := consumer.NewDayCloseEventHandler(
		log,
		accrualBatch,
		dlqProducer,
	)

	// Initialize outbox poller
	historyPublisher := outbox_poller.NewHistoryPublisher(
		outboxRepo,
		historyRepo,
		eventProducer,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		historyPublisher,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.DayCloseTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.DayCloseTopic, cfg.Kafka.ConsumerGroup, dayCloseHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Start the fallback accrual ticker. Day-close events are the primary
	// trigger; the ticker catches up when no event arrives, and the accrual
	// idempotency makes the overlap harmless.
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting fallback accrual ticker", "interval", cfg.Accrual.TickInterval.String())
		ticker := time.NewTicker(cfg.Accrual.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-appCtx.Done():
				return
			case <-ticker.C:
				businessDate, err := calendar.Today(appCtx)
				if err != nil {
					log.Error("Failed to resolve business date for accrual tick", "error", err)
					continue
				}
				if _, err := accrualBatch.Run(appCtx, businessDate); err != nil {
					log.Error("Fallback accrual run failed", "error", err)
				}
			}
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the accrual worker pool
	log.Info("Shutting down accrual worker pool", "running_workers", accrualBatch.Running())
	accrualBatch.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka producers
	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing payment event Kafka producer", "error", err)
	}
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("EOD Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("EOD Processor shutdown completed with errors")
	} else {
		log.Info("EOD Processor shutdown completed successfully")
	}
}
