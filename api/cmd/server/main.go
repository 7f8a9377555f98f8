package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"imageConverter/api/cache"
	"imageConverter/api/config"
	"imageConverter/api/database"
	"imageConverter/api/handlers"
	"imageConverter/api/kafka"
	"imageConverter/api/middleware"
	"imageConverter/api/repository"
	"imageConverter/api/service"
	"imageConverter/converter"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("API service stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("API Service starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	for _, dir := range []string{cfg.UploadsDir, cfg.OutputsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	redisCache, err := database.ConnectCache(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		return err
	}
	defer producer.Close()

	taskService := service.NewTaskService(
		repository.NewPostgresRepo(db),
		cache.NewStatusCache(redisCache),
		producer,
		cfg.KafkaTopic,
		cfg.OutputsDir,
		logger,
	)

	// Capability tables only; the API never converts.
	handler := handlers.NewTaskHandler(taskService, logger, handlers.Options{
		UploadsDir:  cfg.UploadsDir,
		MaxFileSize: cfg.MaxFileSize,
		Capabilities: map[converter.BackendKind]converter.Capabilities{
			converter.BackendBitmap: converter.NewBitmapBackend(logger).Capabilities(),
			converter.BackendMagick: converter.NewMagickBackend(logger, converter.DefaultMagickOptions(), nil).Capabilities(),
		},
	})

	mux := http.NewServeMux()
	handler.Register(mux)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(mux,
			middleware.TraceID,
			middleware.Logging(logger),
			middleware.Recovery(logger),
		),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started", zap.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
