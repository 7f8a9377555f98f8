package models

import (
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusSkipped    TaskStatus = "skipped"
)

// Terminal reports whether no worker will touch the task again.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

type Task struct {
	ID               string
	TraceID          string
	OriginalFilename string
	FilePath         string
	OutputPath       string
	OutputFormat     string
	Quality          int
	TargetWidth      *int
	TargetHeight     *int
	Backend          string
	Status           TaskStatus
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}
