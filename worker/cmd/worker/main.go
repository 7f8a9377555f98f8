package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"imageConverter/converter"
	"imageConverter/pool"
	"imageConverter/worker/cache"
	"imageConverter/worker/config"
	"imageConverter/worker/kafka"
	"imageConverter/worker/repository"
	"imageConverter/worker/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Worker stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Worker Service starting",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.Int("workers", cfg.WorkerCount),
	)

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return err
	}

	conv := converter.NewConverter(logger,
		converter.NewBitmapBackend(logger),
		converter.NewMagickBackend(logger, cfg.Magick, converter.ExecRunner),
	)
	processor := service.NewProcessor(
		repository.NewPostgresRepo(db),
		cache.NewStatusCache(rdb),
		conv,
		cfg.JobTimeout,
		logger,
	)

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	// Jobs are acknowledged once queued. A job that has not started when
	// shutdown begins keeps its pending status.
	workers := pool.NewWorkerPool(cfg.WorkerCount)
	defer workers.Wait()

	return consumer.Consume(ctx, cfg.KafkaTopic, func(ctx context.Context, job *kafka.ConversionJob) error {
		workers.Submit(ctx, func(ctx context.Context) {
			if ctx.Err() != nil {
				logger.Warn("Job not started before shutdown", zap.String("task_id", job.TaskID))
				return
			}
			processor.Process(ctx, job)
		})
		return nil
	})
}
