package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"imageConverter/converter"
	"imageConverter/worker/kafka"
	"imageConverter/worker/repository"
)

const (
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
	statusSkipped    = "skipped"

	// statusWriteTimeout bounds a status write made after the job context
	// may already be cancelled.
	statusWriteTimeout = 5 * time.Second
)

type StatusCache interface {
	Set(ctx context.Context, taskID string, status string) error
}

type Converter interface {
	Convert(ctx context.Context, req converter.Request) converter.Result
}

type Processor struct {
	repo    repository.Repository
	cache   StatusCache
	conv    Converter
	timeout time.Duration
	logger  *zap.Logger
}

func NewProcessor(repo repository.Repository, cache StatusCache, conv Converter, timeout time.Duration, logger *zap.Logger) *Processor {
	return &Processor{
		repo:    repo,
		cache:   cache,
		conv:    conv,
		timeout: timeout,
		logger:  logger,
	}
}

// Process runs one job: processing, then completed or failed. A job whose
// output already exists is marked skipped without converting. The returned
// error is the conversion failure, already recorded on the task.
func (p *Processor) Process(ctx context.Context, job *kafka.ConversionJob) error {
	log := p.logger.With(zap.String("task_id", job.TaskID), zap.String("trace_id", job.TraceID))

	req, err := buildRequest(job)
	if err != nil {
		p.setStatus(ctx, log, job.TaskID, statusFailed, err.Error())
		return err
	}

	if _, err := os.Stat(job.OutputPath); err == nil {
		log.Info("Output exists, skipping", zap.String("output", job.OutputPath))
		p.setStatus(ctx, log, job.TaskID, statusSkipped, "output already exists")
		return nil
	}

	if err := p.setStatus(ctx, log, job.TaskID, statusProcessing, ""); errors.Is(err, repository.ErrTaskNotFound) {
		return err
	}

	convCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		convCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	res := p.conv.Convert(convCtx, req)
	if !res.Success {
		log.Error("Conversion failed", zap.Duration("elapsed", res.Elapsed), zap.Error(res.Err))
		p.setStatus(ctx, log, job.TaskID, statusFailed, res.Err.Error())
		return res.Err
	}

	log.Info("Conversion completed",
		zap.String("output", res.OutputPath),
		zap.Duration("elapsed", res.Elapsed),
	)
	p.setStatus(ctx, log, job.TaskID, statusCompleted, "")
	return nil
}

// setStatus writes Postgres first, then the cache. Cache failures are only
// logged since Postgres is the source of truth. The writes do not inherit
// ctx's cancellation: a job interrupted by shutdown still records its outcome.
func (p *Processor) setStatus(ctx context.Context, log *zap.Logger, taskID, status, errMsg string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	if err := p.repo.UpdateTaskStatus(ctx, taskID, status, errMsg); err != nil {
		log.Error("Failed to update task status", zap.String("status", status), zap.Error(err))
		return err
	}
	if err := p.cache.Set(ctx, taskID, status); err != nil {
		log.Warn("Failed to cache task status", zap.String("status", status), zap.Error(err))
	}
	return nil
}

func buildRequest(job *kafka.ConversionJob) (converter.Request, error) {
	format, err := converter.ParseFormat(job.Format)
	if err != nil {
		return converter.Request{}, fmt.Errorf("job format: %w", err)
	}
	backend, err := converter.ParseBackend(job.Backend)
	if err != nil {
		return converter.Request{}, fmt.Errorf("job backend: %w", err)
	}
	return converter.Request{
		InputPath:    job.InputPath,
		OutputPath:   job.OutputPath,
		Format:       format,
		Quality:      job.Quality,
		TargetWidth:  job.TargetWidth,
		TargetHeight: job.TargetHeight,
		Backend:      backend,
	}, nil
}
