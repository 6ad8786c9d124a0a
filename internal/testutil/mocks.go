// Package testutil provides shared mocks and fakes for tests.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/taskmate-bot/taskmate/internal/domain"
)

// MockUserRepository is a testify mock for repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	args := m.Called(ctx, telegramID)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	args := m.Called(ctx, login)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

// MockTaskRepository is a testify mock for repository.TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) ListByOwner(ctx context.Context, telegramID int64) ([]domain.Task, error) {
	args := m.Called(ctx, telegramID)
	tasks, _ := args.Get(0).([]domain.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *MockTaskRepository) UpdateField(ctx context.Context, id int64, field, value string) (bool, error) {
	args := m.Called(ctx, id, field, value)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
