// Package repository implements SQL-backed persistence for users and tasks.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskmate-bot/taskmate/internal/domain"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	FindByLogin(ctx context.Context, login string) (*domain.User, error)
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log,
	}
}

const selectUserColumns = `SELECT id, tg_user_id, username, login, status, created_at FROM users`

// Create persists a new user record.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (tg_user_id, username, login, status)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.TelegramID,
		user.Username,
		user.Login,
		user.Status,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to create user", slog.Int64("tg_user_id", user.TelegramID), slog.Any("error", err))
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByTelegramID retrieves a user by their Telegram identifier.
func (r *userRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUserColumns+` WHERE tg_user_id = $1`, telegramID)
	return r.scanUser(row, slog.Int64("tg_user_id", telegramID))
}

// FindByLogin retrieves a user by login. The comparison is case-sensitive.
func (r *userRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUserColumns+` WHERE login = $1`, login)
	return r.scanUser(row, slog.String("login", login))
}

func (r *userRepository) scanUser(row *sql.Row, attr slog.Attr) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.Login,
		&user.Status,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch user", attr, slog.Any("error", err))
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	return &user, nil
}
