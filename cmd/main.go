/**
 * @description
 * This is the main entry point for the back-office service. It is
 * responsible for initializing all components: configuration, logging,
 * the database connection pool, the optional Redis and RabbitMQ clients,
 * repositories, the core application services, and the HTTP server. It
 * wires everything together, provisions the seed agent and starts the
 * service with graceful shutdown.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: For HTTP routing (via internal/api).
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: For loading .env files during local development.
 * - github.com/redis/go-redis/v9: Login rate limiting.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/rabbitmq, pkg/logging: Event publishing and structured logging.
 */

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/terangapay/backoffice/internal/api"
	"github.com/terangapay/backoffice/internal/app"
	"github.com/terangapay/backoffice/internal/config"
	"github.com/terangapay/backoffice/internal/store"
	"github.com/terangapay/backoffice/pkg/logging"
	"github.com/terangapay/backoffice/pkg/rabbitmq"
)

func main() {
	// Load an optional .env file for local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("config load failed: " + err.Error())
	}

	logger, err := logging.New()
	if err != nil {
		panic("logger init failed: " + err.Error())
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be configured")
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL must be configured")
	}

	logger.Info("starting back-office service", zap.String("port", cfg.ServerPort))

	// Establish a connection pool to PostgreSQL.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database url parse failed", zap.Error(err))
	}
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer dbpool.Close()

	if err := store.EnsureSchema(ctx, dbpool); err != nil {
		logger.Fatal("schema setup failed", zap.Error(err))
	}
	logger.Info("database connected")

	// Redis is optional: without it login rate limiting is disabled.
	var redisClient redis.UniversalClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis url parse failed", zap.Error(err))
		}
		client := redis.NewClient(opts)
		defer client.Close()
		redisClient = client
		logger.Info("redis connected", zap.String("addr", opts.Addr))
	} else {
		logger.Warn("REDIS_URL not set; login rate limiting disabled")
	}

	// RabbitMQ is best-effort: fall back to a no-op publisher when the
	// broker is unavailable so the service still starts.
	var producer rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable; events will be dropped", zap.Error(err))
			producer = &rabbitmq.NopPublisher{Logger: logger}
		} else {
			producer = p
		}
	} else {
		logger.Warn("RABBITMQ_URL not set; events will be dropped")
		producer = &rabbitmq.NopPublisher{Logger: logger}
	}
	defer producer.Close()

	avatars, err := app.NewAvatarStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("upload dir setup failed", zap.Error(err))
	}

	accountRepo := store.NewPostgresAccountRepository(dbpool)
	transactionRepo := store.NewPostgresTransactionRepository(dbpool)

	tokens := app.NewTokenService(cfg.JWTSecret, cfg.TokenTTL(), cfg.RefreshThreshold())
	limiter := app.NewLoginRateLimiter(redisClient, cfg.RedisRateLimitPrefix, cfg.LoginRateLimitPerMin, time.Minute)

	accountService := app.NewAccountService(accountRepo, tokens, producer, cfg.AccountEventExchange, avatars, logger)
	transactionService := app.NewTransactionService(
		transactionRepo, accountRepo, producer, cfg.AccountEventExchange,
		logger, cfg.MinDepositAmount, cfg.CancelWindow(),
	)

	if err := accountService.EnsureSeedAgent(ctx, cfg.SeedAgentEmail, cfg.SeedAgentPassword, cfg.SeedAgentName); err != nil {
		logger.Fatal("seed agent provisioning failed", zap.Error(err))
	}

	accountHandler := api.NewAccountHandler(accountService, limiter, logger)
	transactionHandler := api.NewTransactionHandler(transactionService, logger)
	router := api.NewRouter(cfg, logger, tokens, accountHandler, transactionHandler, cfg.UploadDir)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
