package repository

import (
	"context"
	"errors"

	"imageConverter/api/models"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskAlreadyExists = errors.New("task already exists")
)

type Repository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	GetTaskByTraceID(ctx context.Context, traceID string) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}
