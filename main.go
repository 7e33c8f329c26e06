package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	alertdb "ms-gatekeeper/internal/alerts/db"
	alertredis "ms-gatekeeper/internal/alerts/redis"
	alerts "ms-gatekeeper/internal/alerts/service"
	alerts_api "ms-gatekeeper/internal/alerts/api"
	"ms-gatekeeper/internal/auth"
	"ms-gatekeeper/internal/config"
	"ms-gatekeeper/internal/database/migrations"
	gatedb "ms-gatekeeper/internal/gates/db"
	gates_api "ms-gatekeeper/internal/gates/api"
	gates "ms-gatekeeper/internal/gates/service"
	"ms-gatekeeper/internal/kafka"
	"ms-gatekeeper/internal/logger"
	offlinedb "ms-gatekeeper/internal/offline/db"
	offline_api "ms-gatekeeper/internal/offline/api"
	offline "ms-gatekeeper/internal/offline/service"
	passdb "ms-gatekeeper/internal/passes/db"
	"ms-gatekeeper/internal/resolver"
	validationdb "ms-gatekeeper/internal/validation/db"
	validation_api "ms-gatekeeper/internal/validation/api"
	validation "ms-gatekeeper/internal/validation/service"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Gatekeeper Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
		if err := runner.RunMigrations(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		logger.Info("DATABASE", "Migrations applied")
	}

	var kafkaProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		kafkaProducer = kafka.NewProducer(cfg.Kafka.Brokers)

		requiredTopics := []string{
			cfg.Kafka.Topics.ValidationRecorded,
			cfg.Kafka.Topics.AlertRaised,
			cfg.Kafka.Topics.OfflineSynced,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		logger.Warn("KAFKA", "Kafka disabled, validation and alert streams will not be published")
	}

	passDB := &passdb.DB{Bun: bunDB}
	gateDB := &gatedb.DB{Bun: bunDB}
	auditDB := &validationdb.DB{Bun: bunDB}
	alertDB := &alertdb.DB{Bun: bunDB}
	offlineDB := &offlinedb.DB{Bun: bunDB}

	passResolver := resolver.New(passDB, cfg.Legacy.EncryptionKey)
	if passResolver.LegacyEnabled() {
		logger.Info("RESOLVER", "Legacy encrypted QR support enabled")
	} else {
		logger.Info("RESOLVER", "Legacy encrypted QR support disabled")
	}

	gateService := gates.NewGateService(gateDB)
	tracker := alertredis.NewTracker(redisClient)

	var alertKafka alerts.KafkaPublisher
	var validationKafka validation.KafkaPublisher
	var offlineKafka offline.KafkaPublisher
	if kafkaProducer != nil {
		alertKafka = kafkaProducer
		validationKafka = kafkaProducer
		offlineKafka = kafkaProducer
	}

	alertService := alerts.NewAlertService(alertDB, auditDB, tracker, alertKafka, logger,
		cfg.Alerts.DuplicateWindow, cfg.Alerts.RapidScanThreshold)

	validationService := validation.NewValidationService(passResolver, gateService, passDB, auditDB,
		alertService, validationKafka, logger)

	offlineService := offline.NewOfflineService(offlineDB, passResolver, validationService,
		passDB, gateDB, offlineKafka, logger)

	validationHandler := &validation_api.Handler{ValidationService: validationService, Logger: logger}
	gateHandler := &gates_api.Handler{DB: gateDB, Logger: logger}
	alertHandler := &alerts_api.Handler{AlertService: alertService, Logger: logger}
	offlineHandler := &offline_api.Handler{OfflineService: offlineService, Logger: logger}

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		logger.Info("AUTH", "Auth middleware applied to API routes")

		r.Route("/api", func(r chi.Router) {
			r.Post("/validate", validationHandler.ValidatePass)
			logger.Info("ROUTER", "Validation endpoint registered at /api/validate")

			r.Get("/gates/{gateID}/access/{categoryID}", gateHandler.CheckGateAccess)
			logger.Info("ROUTER", "Gate access probe registered under /api/gates")

			r.Route("/offline", func(r chi.Router) {
				r.Get("/package/{eventID}", offlineHandler.DownloadOfflinePackage)
				r.Post("/sync", offlineHandler.SyncOfflineValidations)
			})
			logger.Info("ROUTER", "Offline routes registered under /api/offline")

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/{eventID}", alertHandler.ListAlerts)
				r.Post("/{alertID}/acknowledge", alertHandler.AcknowledgeAlert)
			})
			logger.Info("ROUTER", "Alert routes registered under /api/alerts")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Gatekeeper Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("KAFKA", fmt.Sprintf("Producer close failed: %v", err))
		}
	}

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Gatekeeper Service shutdown complete")
	}
}
