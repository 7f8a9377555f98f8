package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imageConverter/api/dto"
	"imageConverter/api/kafka"
	"imageConverter/api/models"
	"imageConverter/api/repository"
	"imageConverter/converter"
)

const (
	timeLayout = "2006-01-02T15:04:05Z"

	// discardTimeout bounds the rollback of a task whose job was never published.
	discardTimeout = 5 * time.Second
)

// StatusCache is the fast path for status lookups.
type StatusCache interface {
	Get(ctx context.Context, taskID string) (models.TaskStatus, error)
	Set(ctx context.Context, taskID string, status models.TaskStatus) error
	Delete(ctx context.Context, taskID string) error
}

type TaskService struct {
	repo       repository.Repository
	cache      StatusCache
	producer   kafka.Producer
	topic      string
	outputsDir string
	logger     *zap.Logger
}

func NewTaskService(repo repository.Repository, cache StatusCache, producer kafka.Producer, topic, outputsDir string, logger *zap.Logger) *TaskService {
	return &TaskService{
		repo:       repo,
		cache:      cache,
		producer:   producer,
		topic:      topic,
		outputsDir: outputsDir,
		logger:     logger,
	}
}

// CreateTask stores a pending task and publishes its conversion job. A
// request whose trace ID already has a task returns that task unchanged.
// When publishing fails the task is removed again, so a retry with the
// same trace ID starts over.
func (s *TaskService) CreateTask(ctx context.Context, traceID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	if existing, err := s.repo.GetTaskByTraceID(ctx, traceID); err == nil {
		s.logger.Info("Task already exists for trace",
			zap.String("trace_id", traceID),
			zap.String("task_id", existing.ID),
		)
		return s.toResponse(existing), nil
	} else if !errors.Is(err, repository.ErrTaskNotFound) {
		return nil, err
	}

	format, err := converter.ParseFormat(req.OutputFormat)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	task := &models.Task{
		ID:               id,
		TraceID:          traceID,
		OriginalFilename: req.OriginalFilename,
		FilePath:         req.FilePath,
		OutputPath:       filepath.Join(s.outputsDir, id+"."+format.Ext()),
		OutputFormat:     format.String(),
		Quality:          req.Quality,
		TargetWidth:      req.TargetWidth,
		TargetHeight:     req.TargetHeight,
		Backend:          req.Backend,
		Status:           models.StatusPending,
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskAlreadyExists) {
			existing, getErr := s.repo.GetTaskByTraceID(ctx, traceID)
			if getErr != nil {
				return nil, getErr
			}
			return s.toResponse(existing), nil
		}
		return nil, err
	}

	if err := s.cache.Set(ctx, task.ID, models.StatusPending); err != nil {
		s.logger.Warn("Failed to cache status", zap.String("task_id", task.ID), zap.Error(err))
	}

	job := &kafka.ConversionJob{
		TaskID:       task.ID,
		TraceID:      traceID,
		InputPath:    task.FilePath,
		OutputPath:   task.OutputPath,
		Format:       task.OutputFormat,
		Quality:      task.Quality,
		TargetWidth:  task.TargetWidth,
		TargetHeight: task.TargetHeight,
		Backend:      task.Backend,
	}
	if err := s.producer.SendConversionJob(ctx, s.topic, job); err != nil {
		s.discard(ctx, task.ID)
		return nil, fmt.Errorf("publish job: %w", err)
	}

	return s.toResponse(task), nil
}

// discard deletes an unpublished task. It runs even when ctx is already
// cancelled.
func (s *TaskService) discard(ctx context.Context, taskID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		s.logger.Error("Failed to discard unpublished task", zap.String("task_id", taskID), zap.Error(err))
	}
	if err := s.cache.Delete(ctx, taskID); err != nil {
		s.logger.Warn("Failed to drop cached status", zap.String("task_id", taskID), zap.Error(err))
	}
}

// GetTaskStatus answers in-flight tasks from the cache. Finished tasks and
// cache misses are read from Postgres so the response carries the output
// path or error message.
func (s *TaskService) GetTaskStatus(ctx context.Context, taskID string) (*dto.TaskResponse, error) {
	status, err := s.cache.Get(ctx, taskID)
	if err == nil && !status.Terminal() {
		return &dto.TaskResponse{
			ID:     taskID,
			Status: string(status),
		}, nil
	}

	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, dto.ErrTaskNotFound
		}
		return nil, err
	}

	if err := s.cache.Set(ctx, task.ID, task.Status); err != nil {
		s.logger.Warn("Failed to cache status", zap.String("task_id", task.ID), zap.Error(err))
	}

	return s.toResponse(task), nil
}

func (s *TaskService) toResponse(task *models.Task) *dto.TaskResponse {
	var completedAt *string
	if task.CompletedAt != nil {
		formatted := task.CompletedAt.UTC().Format(timeLayout)
		completedAt = &formatted
	}

	return &dto.TaskResponse{
		ID:               task.ID,
		TraceID:          task.TraceID,
		OriginalFilename: task.OriginalFilename,
		OutputFormat:     task.OutputFormat,
		OutputPath:       task.OutputPath,
		Backend:          task.Backend,
		Status:           string(task.Status),
		ErrorMessage:     task.ErrorMessage,
		CreatedAt:        task.CreatedAt.UTC().Format(timeLayout),
		CompletedAt:      completedAt,
		FilePath:         task.FilePath,
	}
}
