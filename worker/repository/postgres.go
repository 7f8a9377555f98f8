package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTaskNotFound = errors.New("task not found")

type Repository interface {
	UpdateTaskStatus(ctx context.Context, taskID string, status string, errMsg string) error
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// UpdateTaskStatus stamps completed_at for terminal statuses.
func (r *PostgresRepo) UpdateTaskStatus(ctx context.Context, taskID string, status string, errMsg string) error {
	query := `UPDATE tasks SET status = $1, error_message = $2, updated_at = NOW()`
	if terminal(status) {
		query += `, completed_at = NOW()`
	}
	query += ` WHERE id = $3`

	result, err := r.db.Exec(ctx, query, status, errMsg, taskID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func terminal(status string) bool {
	switch status {
	case "completed", "failed", "skipped":
		return true
	}
	return false
}
