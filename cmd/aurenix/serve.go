package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"aurenix/internal/cache"
	"aurenix/internal/config"
	"aurenix/internal/database"
	"aurenix/internal/events"
	"aurenix/internal/handlers"
	"aurenix/internal/jobs"
	"aurenix/internal/metrics"
	"aurenix/internal/oauth"
	"aurenix/internal/repository"
	"aurenix/internal/security"
	"aurenix/internal/server"
	"aurenix/internal/service"
	"aurenix/internal/storage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) error {
	dbPool, err := connectPostgres(ctx, cfg.Postgres)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect postgres")
		return err
	}
	if err := database.Migrate(ctx, dbPool); err != nil {
		dbPool.Close()
		return err
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		dbPool.Close()
		logger.Error().Err(err).Msg("failed to connect redis")
		return err
	}

	images, err := storage.NewProductImages(cfg.Storage)
	if err != nil {
		dbPool.Close()
		_ = redisClient.Close()
		return err
	}
	if err := images.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure product bucket failed")
	}

	users := repository.NewUserRepository(dbPool)
	sessions := repository.NewSessionRepository(dbPool)
	products := repository.NewProductRepository(dbPool)

	m := metrics.New()
	publisher := events.NewPublisher(redisClient, cfg.Redis.Stream, logger)
	hasher := security.NewHasher(security.Argon2Params(cfg.Security.Argon2))

	states, err := oauth.NewStateStore(redisClient, cfg.Security.SessionSecret, cfg.OAuth.StateTTL, cfg.Security.SecureCookies)
	if err != nil {
		dbPool.Close()
		_ = redisClient.Close()
		return err
	}

	handlerSet, err := handlers.NewHandlerSet(logger, cfg, handlers.Dependencies{
		Auth:     service.NewAuthService(users, hasher, publisher, m, logger),
		Sessions: service.NewSessionManager(sessions, users, cfg.Security, logger),
		Roles:    service.NewRoleGate(users, publisher, m, logger),
		Catalog:  service.NewCatalogService(products, images, logger),
		OAuth:    oauth.NewGoogleProvider(cfg.OAuth),
		States:   states,
		Events:   publisher,
		Metrics:  m,
		Checks: map[string]handlers.Pinger{
			"database":    dbPool.Ping,
			"cache":       func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			"objectstore": images.Ping,
		},
	})
	if err != nil {
		dbPool.Close()
		_ = redisClient.Close()
		return err
	}

	httpServer := server.NewHTTPServer(cfg, logger, m, handlerSet)

	scheduler := jobs.NewScheduler(sessions, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Start()
	}()

	return waitForShutdown(ctx, logger, httpServer, serveErr, scheduler, dbPool, redisClient)
}

func waitForShutdown(
	parent context.Context,
	logger zerolog.Logger,
	srv *server.HTTPServer,
	serveErr <-chan error,
	scheduler *jobs.Scheduler,
	db *pgxpool.Pool,
	redisClient *redis.Client,
) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-serveErr:
		logger.Error().Err(runErr).Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduled jobs still running at shutdown")
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
	return runErr
}
