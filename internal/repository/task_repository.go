package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskmate-bot/taskmate/internal/domain"
)

// ErrUnknownField indicates an update against a column that is not editable.
var ErrUnknownField = errors.New("unknown task field")

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	ListByOwner(ctx context.Context, telegramID int64) ([]domain.Task, error)
	FindByID(ctx context.Context, id int64) (*domain.Task, error)
	// UpdateField writes one editable column (name, description, or status)
	// and reports whether a row was touched.
	UpdateField(ctx context.Context, id int64, field, value string) (bool, error)
	// Delete physically removes the task and reports whether a row was touched.
	Delete(ctx context.Context, id int64) (bool, error)
}

type taskRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewTaskRepository creates a new SQL-backed task repository.
func NewTaskRepository(db *sql.DB, log *slog.Logger) TaskRepository {
	return &taskRepository{
		db:  db,
		log: log,
	}
}

const selectTaskColumns = `SELECT id, tg_user_id, name, description, status, created_at, last_update FROM tasks`

// updateQueries maps editable fields to fixed statements; the field name
// never reaches the SQL text.
var updateQueries = map[string]string{
	"name":        `UPDATE tasks SET name = $1, last_update = now() WHERE id = $2`,
	"description": `UPDATE tasks SET description = $1, last_update = now() WHERE id = $2`,
	"status":      `UPDATE tasks SET status = $1, last_update = now() WHERE id = $2`,
}

// Create persists a new task record.
func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
		INSERT INTO tasks (tg_user_id, name, description, status)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		task.TelegramID,
		task.Name,
		task.Description,
		task.Status,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to create task", slog.Int64("tg_user_id", task.TelegramID), slog.Any("error", err))
		}
		return fmt.Errorf("insert task: %w", err)
	}

	return nil
}

// ListByOwner returns every task owned by the given Telegram user, oldest first.
func (r *taskRepository) ListByOwner(ctx context.Context, telegramID int64) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, selectTaskColumns+` WHERE tg_user_id = $1 ORDER BY id`, telegramID)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list tasks", slog.Int64("tg_user_id", telegramID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(
			&task.ID,
			&task.TelegramID,
			&task.Name,
			&task.Description,
			&task.Status,
			&task.CreatedAt,
			&task.LastUpdate,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// FindByID retrieves a single task or ErrNotFound.
func (r *taskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, selectTaskColumns+` WHERE id = $1`, id)

	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.TelegramID,
		&task.Name,
		&task.Description,
		&task.Status,
		&task.CreatedAt,
		&task.LastUpdate,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch task", slog.Int64("task_id", id), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select task: %w", err)
	}

	return &task, nil
}

// UpdateField writes one editable column and bumps last_update.
func (r *taskRepository) UpdateField(ctx context.Context, id int64, field, value string) (bool, error) {
	query, ok := updateQueries[field]
	if !ok {
		return false, ErrUnknownField
	}

	result, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to update task", slog.Int64("task_id", id), slog.String("field", field), slog.Any("error", err))
		}
		return false, fmt.Errorf("update task %s: %w", field, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update task %s rows: %w", field, err)
	}

	return affected > 0, nil
}

// Delete physically removes the task.
func (r *taskRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to delete task", slog.Int64("task_id", id), slog.Any("error", err))
		}
		return false, fmt.Errorf("delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task rows: %w", err)
	}

	return affected > 0, nil
}
