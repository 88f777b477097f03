package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aurenix/internal/cache"
	"aurenix/internal/queue"
	"aurenix/internal/repository"
	"aurenix/internal/tasks"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume auth events into the audit table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := connectPostgres(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			client, err := cache.NewRedisClient(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			processor := tasks.NewAuditProcessor(repository.NewAuditRepository(pool), logger)
			consumer := queue.NewConsumer(
				client,
				cfg.Redis.Stream,
				cfg.Redis.Group,
				cfg.Redis.Consumer,
				cfg.Queues.ClaimInterval,
				logger,
				processor,
			)

			err = consumer.Start(ctx)
			logger.Info().Msg("worker stopped")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
