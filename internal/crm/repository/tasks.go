package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crmsync_backend/platform/apperr"
)

const taskNotFoundMessage = "task not found"

const taskColumns = `id, title, details, status, due_at, created_at, updated_at`

// CreateTask inserts a new task.
func (r *Repo) CreateTask(ctx context.Context, params CreateTaskParams) (Task, error) {
	query := `
		INSERT INTO tasks (title, details, due_at)
		VALUES ($1, $2, $3)
		RETURNING ` + taskColumns

	task, err := scanTask(r.pool.QueryRow(ctx, query, params.Title, params.Details, params.DueAt))
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// GetTaskByID retrieves a task by its ID.
func (r *Repo) GetTaskByID(ctx context.Context, id uuid.UUID) (Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, apperr.NotFound(taskNotFoundMessage)
		}
		return Task{}, fmt.Errorf("get task by id: %w", err)
	}

	return task, nil
}

// ListTasks retrieves all tasks, newest first.
func (r *Repo) ListTasks(ctx context.Context) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC`
	return r.queryTasks(ctx, query)
}

// ListOpenTasks retrieves tasks still in the open status.
func (r *Repo) ListOpenTasks(ctx context.Context) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = 'open' ORDER BY created_at DESC`
	return r.queryTasks(ctx, query)
}

func (r *Repo) queryTasks(ctx context.Context, query string) ([]Task, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var results []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		results = append(results, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return results, nil
}

func scanTask(row pgx.Row) (Task, error) {
	var task Task
	var createdAt, updatedAt time.Time

	err := row.Scan(&task.ID, &task.Title, &task.Details, &task.Status, &task.DueAt, &createdAt, &updatedAt)
	if err != nil {
		return Task{}, err
	}

	task.CreatedAt = createdAt.Format(time.RFC3339)
	task.UpdatedAt = updatedAt.Format(time.RFC3339)

	return task, nil
}
