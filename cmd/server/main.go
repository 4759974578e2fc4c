// @title                       License Key API
// @version                     1.0
// @description                 Issues per-user software licenses and binds each to a single hardware id.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"github.com/hwidlock/license-system/internal/api"
	"github.com/hwidlock/license-system/internal/api/handler"
	"github.com/hwidlock/license-system/internal/api/metrics"
	"github.com/hwidlock/license-system/internal/core/domain"
	"github.com/hwidlock/license-system/internal/core/ports"
	"github.com/hwidlock/license-system/internal/core/service"
	"github.com/hwidlock/license-system/internal/infrastructure/db/mongo"
	"github.com/hwidlock/license-system/internal/infrastructure/db/postgres"
	"github.com/hwidlock/license-system/internal/infrastructure/db/redis"
	"github.com/hwidlock/license-system/internal/infrastructure/queue"
	"github.com/hwidlock/license-system/internal/pkg/config"
	"github.com/hwidlock/license-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "license-system",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := postgres.Connect(ctx, postgres.Config{
		DSN:          cfg.Postgres.DSN,
		MaxOpenConns: cfg.Postgres.MaxOpenConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Msg("postgres connected, migrations applied")

	checks := map[string]handler.HealthCheck{
		"postgres": db.PingContext,
	}

	var rateStore echomiddleware.RateLimiterStore
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		rateStore = redis.NewRateLimiter(rdb, "validate", cfg.RateLimit.ValidateLimit, cfg.RateLimit.ValidateWindow, logger.Component("ratelimit"))
		checks["redis"] = redis.Ping(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis rate limiter enabled")
	} else {
		log.Info().Msg("REDIS_ADDR empty, using in-memory rate limiter")
	}

	var (
		audit      ports.AuditLog
		dispatcher *queue.Dispatcher
	)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	if cfg.Mongo.URI != "" {
		client, mdb, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer disconnectMongo(client, log)

		auditRepo := mongo.NewAuditRepository(mdb)
		if err := auditRepo.EnsureIndexes(ctx); err != nil {
			return err
		}

		dispatcher = queue.NewDispatcher(cfg.Audit.Workers, auditRepo, logger.Component("audit"))
		dispatcher.OnDrop(func(e domain.LicenseEvent) {
			metrics.AuditEventsDroppedTotal.WithLabelValues(string(e.Type)).Inc()
		})
		dispatcher.Start(dispatchCtx)
		audit = dispatcher

		checks["mongodb"] = mongo.Ping(client)
		log.Info().Str("database", cfg.Mongo.Database).Msg("audit trail enabled")
	} else {
		log.Info().Msg("MONGO_URI empty, audit trail disabled")
	}

	userRepo := postgres.NewUserRepository(db)
	licenseRepo := postgres.NewLicenseRepository(db)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiresIn, logger.Component("auth"))
	licenseService := service.NewLicenseService(licenseRepo, userRepo, audit, logger.Component("license"))
	adminService := service.NewAdminService(userRepo)

	e := api.NewRouter(api.Dependencies{
		Config:         cfg,
		Log:            logger.Component("http"),
		Users:          userRepo,
		Auth:           authService,
		Licenses:       licenseService,
		Admin:          adminService,
		RateLimitStore: rateStore,
		HealthChecks:   checks,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Requests are drained; flush buffered audit events before closing stores.
	if dispatcher != nil {
		stopDispatch()
		dispatcher.Wait()
	}
	return nil
}

func disconnectMongo(client *mongodrv.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
}
