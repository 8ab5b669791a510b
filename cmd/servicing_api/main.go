package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cartera-loan-servicing/internal/clock"
	"github.com/cartera-loan-servicing/internal/config"
	"github.com/cartera-loan-servicing/internal/data/mongo"
	"github.com/cartera-loan-servicing/internal/data/postgres"
	"github.com/cartera-loan-servicing/internal/domain/catalog"
	"github.com/cartera-loan-servicing/internal/engine/accrual"
	"github.com/cartera-loan-servicing/internal/engine/allocation"
	"github.com/cartera-loan-servicing/internal/engine/reconcile"
	"github.com/cartera-loan-servicing/internal/engine/statement"
	"github.com/cartera-loan-servicing/internal/logger"
	"github.com/cartera-loan-servicing/internal/platform/persistence"
	"github.com/cartera-loan-servicing/internal/servicing_api"
	"github.com/cartera-loan-servicing/internal/servicing_api/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("servicing_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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
	paymentRepo := postgres.NewPaymentRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	fundRepo := postgres.NewFundRepository(log, postgresDB)
	catalogRepo := postgres.NewCatalogRepository(log, postgresDB)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())

	// Initialize domain services and engines
	catalogService := catalog.NewService(catalogRepo, log)
	calendar := clock.NewParameterProvider(catalogRepo, log)
	reconciler := reconcile.NewReconciler(log)
	allocator := allocation.NewAllocator(
		postgresDB,
		loanRepo,
		obligationRepo,
		paymentRepo,
		outboxRepo,
		fundRepo,
		catalogService,
		calendar,
		reconciler,
		log,
	)
	statementBuilder := statement.NewBuilder(loanRepo, obligationRepo, catalogService, calendar, log)

	// Accrual engine backing the admin trigger endpoint. The EOD processor
	// owns the scheduled runs; accrual idempotency makes the overlap harmless.
	accrualEngine := accrual.NewEngine(postgresDB, loanRepo, obligationRepo, catalogService, reconciler, log)
	accrualBatch, err := accrual.NewBatch(accrualEngine, loanRepo, cfg.WorkerPool.Size, log)
	if err != nil {
		log.Error("Failed to initialize accrual worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize services
	loanService := service.NewLoanService(postgresDB, loanRepo, obligationRepo, reconciler, statementBuilder, log)
	paymentService := service.NewPaymentService(log, allocator, paymentRepo, historyRepo)

	// Initialize REST server
	server := servicing_api.NewServer(log, cfg, loanService, paymentService, accrualBatch, calendar)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown the accrual worker pool
	accrualBatch.Shutdown()

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
