package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/taskmate-bot/taskmate/internal/domain"
	"github.com/taskmate-bot/taskmate/internal/repository"
	"github.com/taskmate-bot/taskmate/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_Register_LoginCollision(t *testing.T) {
	repo := &testutil.MockUserRepository{}
	repo.On("FindByLogin", mock.Anything, "alice").
		Return(&domain.User{Login: "alice"}, nil).Once()

	svc := NewService(repo, testLogger())

	err := svc.Register(context.Background(), 42, "Alice", "alice")
	assert.ErrorIs(t, err, ErrLoginTaken)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Register_Success(t *testing.T) {
	repo := &testutil.MockUserRepository{}
	repo.On("FindByLogin", mock.Anything, "bob").
		Return((*domain.User)(nil), repository.ErrNotFound).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.TelegramID == 42 && u.Login == "bob" && u.Status == domain.UserStatusActive
	})).Return(nil).Once()

	svc := NewService(repo, testLogger())

	err := svc.Register(context.Background(), 42, "Bob", "bob")
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Register_LookupFailure(t *testing.T) {
	repo := &testutil.MockUserRepository{}
	lookupErr := errors.New("connection refused")
	repo.On("FindByLogin", mock.Anything, "carol").
		Return((*domain.User)(nil), lookupErr).Once()

	svc := NewService(repo, testLogger())

	err := svc.Register(context.Background(), 42, "Carol", "carol")
	assert.ErrorIs(t, err, lookupErr)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_IsRegistered(t *testing.T) {
	tests := []struct {
		name    string
		user    *domain.User
		err     error
		want    bool
	}{
		{name: "registered", user: &domain.User{TelegramID: 42}, want: true},
		{name: "not registered", err: repository.ErrNotFound, want: false},
		{name: "lookup failure counts as unregistered", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &testutil.MockUserRepository{}
			repo.On("FindByTelegramID", mock.Anything, int64(42)).
				Return(tt.user, tt.err).Once()

			svc := NewService(repo, testLogger())
			assert.Equal(t, tt.want, svc.IsRegistered(context.Background(), 42))
			repo.AssertExpectations(t)
		})
	}
}
