package dto

import "errors"

var ErrTaskNotFound = errors.New("task not found")

type CreateTaskRequest struct {
	OriginalFilename string `json:"original_filename"`
	FilePath         string `json:"file_path"`
	OutputFormat     string `json:"output_format"`
	Quality          int    `json:"quality"`
	TargetWidth      *int   `json:"target_width,omitempty"`
	TargetHeight     *int   `json:"target_height,omitempty"`
	Backend          string `json:"backend"`
}

type TaskResponse struct {
	ID               string  `json:"id"`
	TraceID          string  `json:"trace_id,omitempty"`
	OriginalFilename string  `json:"original_filename,omitempty"`
	OutputFormat     string  `json:"output_format,omitempty"`
	OutputPath       string  `json:"output_path,omitempty"`
	Backend          string  `json:"backend,omitempty"`
	Status           string  `json:"status"`
	ErrorMessage     string  `json:"error_message,omitempty"`
	CreatedAt        string  `json:"created_at,omitempty"`
	CompletedAt      *string `json:"completed_at,omitempty"`
	// FilePath is the stored upload the task reads from. It is not exposed.
	FilePath string `json:"-"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
