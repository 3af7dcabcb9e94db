package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mspdesk/billing-engine/internal/api"
	"github.com/mspdesk/billing-engine/internal/config"
	"github.com/mspdesk/billing-engine/internal/data/mongo"
	"github.com/mspdesk/billing-engine/internal/data/postgres"
	"github.com/mspdesk/billing-engine/internal/exportpublisher"
	"github.com/mspdesk/billing-engine/internal/logger"
	"github.com/mspdesk/billing-engine/internal/platform/accounting"
	"github.com/mspdesk/billing-engine/internal/platform/messaging/producers"
	"github.com/mspdesk/billing-engine/internal/platform/persistence"
	"github.com/mspdesk/billing-engine/internal/reconciliation"
	"github.com/mspdesk/billing-engine/internal/statusrefresh"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("billingd")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Billing Reconciliation Engine",
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
	entryRepo := postgres.NewEntryRepository(log, postgresDB)
	customerRepo := postgres.NewCustomerRepository(log, postgresDB)
	exportRepo := postgres.NewExportRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize Kafka producers
	exportProducer, err := producers.NewExportEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize export event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize the external accounting client
	accountingClient := accounting.NewClient(&cfg.Accounting, log)

	// Initialize billing services
	aggregator := reconciliation.NewAggregator(log, entryRepo, customerRepo)
	ledger := reconciliation.NewExportLedger(log, postgresDB, entryRepo, exportRepo, outboxRepo)
	coordinator := reconciliation.NewCoordinator(log, entryRepo, customerRepo, ledger, accountingClient, auditRepo)

	// Initialize outbox poller
	eventPublisher := exportpublisher.NewEventPublisher(log, outboxRepo, exportProducer, dlqProducer)
	poller := exportpublisher.NewPoller(&cfg.Outbox, outboxRepo, eventPublisher, log)

	// Initialize invoice status refresher
	refresher, err := statusrefresh.NewRefresher(&cfg.StatusRefresh, &cfg.WorkerPool, exportRepo, accountingClient, log)
	if err != nil {
		log.Error("Failed to initialize status refresher", "error", err)
		os.Exit(1)
	}

	// Initialize HTTP server
	server := api.NewServer(log, cfg, aggregator, ledger, coordinator)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start HTTP server in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Start invoice status refresher in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		refresher.Start(appCtx)
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

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}

	refresher.Shutdown()

	// Wait for all goroutines to finish
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
	if err := exportProducer.Close(); err != nil {
		log.Error("Error closing export event producer", "error", err)
	}
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Billing engine shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Billing engine shutdown completed successfully")
}
