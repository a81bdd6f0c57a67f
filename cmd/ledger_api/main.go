package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/retail-banking-ledger/internal/api"
	"github.com/retail-banking-ledger/internal/config"
	"github.com/retail-banking-ledger/internal/data/memory"
	"github.com/retail-banking-ledger/internal/data/mongo"
	"github.com/retail-banking-ledger/internal/data/postgres"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/ledger/engine"
	"github.com/retail-banking-ledger/internal/ledger/fraud"
	"github.com/retail-banking-ledger/internal/ledger/fx"
	"github.com/retail-banking-ledger/internal/ledger/limits"
	"github.com/retail-banking-ledger/internal/ledger/outbox_poller"
	"github.com/retail-banking-ledger/internal/logger"
	"github.com/retail-banking-ledger/internal/platform/messaging/consumers"
	"github.com/retail-banking-ledger/internal/platform/messaging/producers"
	"github.com/retail-banking-ledger/internal/platform/metrics"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)
	log.Info("Starting ledger API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"store", cfg.Ledger.Store,
		"timezone", cfg.Ledger.Location.String(),
	)

	m := metrics.New("ledger")

	// Owner store. PostgreSQL also brings the transactional outbox.
	var (
		store      owner.Repository
		postgresDB *persistence.PostgresDB
		outboxRepo *postgres.OutboxRepository
	)
	switch cfg.Ledger.Store {
	case config.StorePostgres:
		if err := persistence.RunMigrations(log, cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
			log.Error("Failed to run PostgreSQL migrations", "error", err)
			os.Exit(1)
		}
		postgresDB, err = persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
		if err != nil {
			log.Error("Failed to initialize PostgreSQL", "error", err)
			os.Exit(1)
		}
		outboxRepo = postgres.NewOutboxRepository(log, postgresDB.Pool())
		store = postgres.NewOwnerRepository(log, postgresDB.Pool(), outboxRepo)
	default:
		log.Warn("Using the in-memory owner store; balances are lost on restart")
		store = memory.NewOwnerRepository()
	}

	// Exchange rates: static table refreshed on an interval, optionally fed from Kafka
	rates := fx.NewConverter(cfg.Ledger.RateMaxAge)
	staticRates, err := fx.ParseRates(cfg.Ledger.StaticRates)
	if err != nil {
		log.Error("Invalid LEDGER_STATIC_RATES", "error", err)
		os.Exit(1)
	}
	refresher := fx.NewRefresher(rates, fx.StaticSource(staticRates), cfg.Ledger.RateRefreshInterval, log)
	if err := refresher.Start(appCtx); err != nil {
		log.Error("Failed to load exchange rates", "error", err)
		os.Exit(1)
	}

	var (
		dlq          producers.DeadLetterPublisher
		dlqProducer  *producers.DLQProducer
		rateConsumer *consumers.KafkaConsumer
	)
	if cfg.Kafka.Enabled {
		dlqProducer, err = producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize DLQ Kafka producer", "error", err)
			os.Exit(1)
		}
		if dlqProducer != nil {
			dlq = dlqProducer
		}
		if cfg.Kafka.RateFeedTopic != "" {
			rateConsumer = consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.RateFeedTopic)
			rateConsumer.Start(appCtx, fx.NewRateFeedHandler(log, rates, dlq).HandleMessage)
		}
	}

	// Rate locks are shared through Redis when several instances serve the same owners
	var rateLocks fx.RateLocker = fx.NewMemoryRateLock(cfg.Ledger.RateLockTTL)
	var redisClose func() error
	if cfg.Redis.Enabled {
		redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		rateLocks = fx.NewRedisRateLock(redisClient, cfg.Ledger.RateLockTTL, log)
		redisClose = redisClient.Close
	}

	// Fraud detection: audit log and metrics always, MongoDB alert trail when enabled
	sinks := fraud.MultiSink{fraud.NewLogSink(log), fraud.NewMetricsSink(m.FraudWarnings())}
	var (
		mongoDB    *persistence.MongoDB
		alertsSink *fraud.AsyncSink
	)
	if cfg.MongoDB.Enabled {
		mongoDB, err = persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
		if err != nil {
			log.Error("Failed to initialize MongoDB", "error", err)
			os.Exit(1)
		}
		alertRepo := mongo.NewFraudAlertRepository(log, mongoDB.Database())
		if err := alertRepo.EnsureIndexes(appCtx); err != nil {
			log.Warn("Failed to create fraud alert indexes", "error", err)
		}
		alertsSink, err = fraud.NewAsyncSink(alertRepo, cfg.WorkerPool.Size, cfg.Ledger.FraudAlertTimeout, log)
		if err != nil {
			log.Error("Failed to initialize fraud alert worker pool", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, alertsSink)
	}

	fraudCfg := fraud.DefaultConfig()
	fraudCfg.WindowSize = cfg.Ledger.FraudWindowSize
	fraudCfg.MaxAge = cfg.Ledger.FraudMaxAge
	fraudCfg.JanitorInterval = cfg.Ledger.FraudJanitorInterval
	detector := fraud.NewDetector(fraudCfg, sinks, log)
	detector.Start(appCtx)

	// Ledger engine and the orchestrators built on it
	ledger := engine.New(engine.Dependencies{
		Store:   store,
		Limits:  limits.NewPolicy(nil, cfg.Ledger.Location),
		Fraud:   detector,
		Rates:   rates,
		Locks:   rateLocks,
		Metrics: m,
		Logger:  log,
	})
	bills := engine.NewBillPaymentOrchestrator(ledger)
	goals := engine.NewSavingsGoalOrchestrator(ledger)

	// Initialize REST server
	handlers := api.NewHandlers(log, ledger, bills, goals, cfg.Ledger.Location)
	server := api.NewServer(log, cfg, handlers, m)
	log.Info("REST server initialized")

	// Outbox poller publishes committed ledger events
	var (
		poller        *outbox_poller.Poller
		eventProducer *producers.LedgerEventProducer
	)
	if outboxRepo != nil {
		if cfg.Kafka.Enabled {
			eventProducer, err = producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
			if err != nil {
				log.Error("Failed to initialize ledger event producer", "error", err)
				os.Exit(1)
			}
			poller = outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, eventProducer, dlq, m, log)
			poller.Start(appCtx)
		} else {
			log.Warn("Kafka is disabled; ledger events stay pending in the outbox")
		}
	}

	scheduler := engine.NewAutoPayScheduler(log, bills, cfg.Ledger.AutoPayInterval)
	scheduler.Start(appCtx)

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

	// Graceful shutdown sequence, in reverse start order
	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before background workers go away
	if err = server.Stop(context.Background()); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Cancel the application context
	cancelAppCtx()

	scheduler.Stop()
	if poller != nil {
		poller.Wait()
	}
	if eventProducer != nil {
		closeWithLog(log, "ledger event producer", eventProducer.Close)
	}

	detector.Stop()
	if alertsSink != nil {
		if err := alertsSink.Close(cfg.Ledger.FraudAlertTimeout); err != nil {
			log.Error("Error draining fraud alert writers", "error", err)
		}
	}
	if mongoDB != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		if err := mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
		cancelShutdown()
	}

	if rateConsumer != nil {
		closeWithLog(log, "rate feed consumer", rateConsumer.Close)
	}
	if dlqProducer != nil {
		closeWithLog(log, "DLQ producer", dlqProducer.Close)
	}
	refresher.Stop()
	if redisClose != nil {
		closeWithLog(log, "Redis client", redisClose)
	}

	if postgresDB != nil {
		postgresDB.Close()
	}

	// Final status
	if serverErr != nil {
		log.Error("Ledger API shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Ledger API shutdown completed successfully")
}

func closeWithLog(log *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Error("Error closing "+name, "error", err)
	}
}
