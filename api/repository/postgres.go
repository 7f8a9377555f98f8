package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"imageConverter/api/database"
	"imageConverter/api/models"
)

const uniqueViolation = "23505"

const taskColumns = `id, trace_id, original_filename, file_path, output_path, output_format,
	quality, target_width, target_height, backend, status, error_message,
	created_at, updated_at, completed_at`

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

// CreateTask inserts task with its caller-assigned ID. A second task with
// the same trace ID is rejected with ErrTaskAlreadyExists.
func (r *PostgresRepo) CreateTask(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, trace_id, original_filename, file_path, output_path, output_format,
			quality, target_width, target_height, backend, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		task.ID,
		task.TraceID,
		task.OriginalFilename,
		task.FilePath,
		task.OutputPath,
		task.OutputFormat,
		task.Quality,
		task.TargetWidth,
		task.TargetHeight,
		task.Backend,
		task.Status,
		task.ErrorMessage,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrTaskAlreadyExists
		}
		return err
	}

	return nil
}

func (r *PostgresRepo) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) GetTaskByTraceID(ctx context.Context, traceID string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE trace_id = $1`
	return scanTask(r.db.Pool.QueryRow(ctx, query, traceID))
}

// DeleteTask removes a task that never left pending, so its trace ID can be
// used again.
func (r *PostgresRepo) DeleteTask(ctx context.Context, id string) error {
	query := `DELETE FROM tasks WHERE id = $1 AND status = $2`

	result, err := r.db.Pool.Exec(ctx, query, id, models.StatusPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var task models.Task
	err := row.Scan(
		&task.ID,
		&task.TraceID,
		&task.OriginalFilename,
		&task.FilePath,
		&task.OutputPath,
		&task.OutputFormat,
		&task.Quality,
		&task.TargetWidth,
		&task.TargetHeight,
		&task.Backend,
		&task.Status,
		&task.ErrorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.CompletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return &task, nil
}
