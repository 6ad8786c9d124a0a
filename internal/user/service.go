// Package user holds the registration domain rules.
package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taskmate-bot/taskmate/internal/domain"
	"github.com/taskmate-bot/taskmate/internal/repository"
)

// ErrLoginTaken indicates a registration attempt with an already used login.
var ErrLoginTaken = errors.New("login already taken")

// Service implements user lookups and registration.
type Service struct {
	repo repository.UserRepository
	log  *slog.Logger
}

// NewService creates a user service backed by the given repository.
func NewService(repo repository.UserRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		repo: repo,
		log:  log,
	}
}

// GetByTelegramID returns the registered user or repository.ErrNotFound.
func (s *Service) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return s.repo.FindByTelegramID(ctx, telegramID)
}

// IsRegistered reports whether the Telegram user has a User record. Lookup
// failures count as not registered so a storage hiccup never opens a flow.
func (s *Service) IsRegistered(ctx context.Context, telegramID int64) bool {
	_, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("failed to check registration", slog.Int64("tg_user_id", telegramID), slog.Any("error", err))
		}
		return false
	}

	return true
}

// Register creates the User record after checking login uniqueness.
// The check and the insert are two round-trips; a concurrent registration
// with the same login can still race to the unique index.
func (s *Service) Register(ctx context.Context, telegramID int64, username, login string) error {
	existing, err := s.repo.FindByLogin(ctx, login)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if existing != nil {
		return ErrLoginTaken
	}

	newUser := &domain.User{
		TelegramID: telegramID,
		Username:   username,
		Login:      login,
		Status:     domain.UserStatusActive,
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		return err
	}

	s.log.Info("user registered", slog.Int64("tg_user_id", telegramID), slog.String("login", login))
	return nil
}
