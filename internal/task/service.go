// Package task holds the task-management domain rules.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/taskmate-bot/taskmate/internal/domain"
	apperrors "github.com/taskmate-bot/taskmate/internal/errors"
	"github.com/taskmate-bot/taskmate/internal/repository"
)

// PageSize is the number of tasks rendered per list page.
const PageSize = 10

// EditableFields maps user-facing field names to the text state that
// collects their new value. The keys double as the choose_task_data params.
var EditableFields = map[string]string{
	"name":        "change_task_name",
	"description": "change_task_description",
}

// Service implements task CRUD with the flow-level validation rules.
type Service struct {
	repo repository.TaskRepository
	log  *slog.Logger
}

// NewService creates a task service backed by the given repository.
func NewService(repo repository.TaskRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		repo: repo,
		log:  log,
	}
}

// ValidateName enforces the 50-character task name bound.
func ValidateName(name string) error {
	if utf8.RuneCountInString(name) > domain.TaskNameMaxLen {
		return apperrors.NewValidationError(
			fmt.Sprintf("The task name must be %d characters or less. Enter the name of the task:", domain.TaskNameMaxLen))
	}

	return nil
}

// Create validates the name and persists a new task with status PROG.
func (s *Service) Create(ctx context.Context, telegramID int64, name, description string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	task := &domain.Task{
		TelegramID:  telegramID,
		Name:        name,
		Description: description,
		Status:      domain.StatusInProgress,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return err
	}

	s.log.Info("task created", slog.Int64("tg_user_id", telegramID), slog.String("name", name))
	return nil
}

// List returns every task owned by the user.
func (s *Service) List(ctx context.Context, telegramID int64) ([]domain.Task, error) {
	return s.repo.ListByOwner(ctx, telegramID)
}

// Get returns one task or repository.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Task, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateField writes a new value into an editable field, re-validating the
// name bound. Returns false when no row was touched.
func (s *Service) UpdateField(ctx context.Context, id int64, field, value string) (bool, error) {
	if _, ok := EditableFields[field]; !ok {
		return false, apperrors.NewStateError(fmt.Sprintf("field %q is not editable", field))
	}

	if field == "name" {
		if err := ValidateName(value); err != nil {
			return false, err
		}
	}

	return s.repo.UpdateField(ctx, id, field, value)
}

// UpdateStatus moves the task to the given status.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	return s.repo.UpdateField(ctx, id, "status", status)
}

// Delete physically removes the task.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// StatusChoices returns the selectable statuses excluding the current one,
// in the fixed display order.
func StatusChoices(current string) []domain.StatusChoice {
	choices := make([]domain.StatusChoice, 0, len(domain.StatusChoices))
	for _, choice := range domain.StatusChoices {
		if choice.Value != current {
			choices = append(choices, choice)
		}
	}

	return choices
}

// Page slices tasks for a zero-based page and reports whether previous and
// next pages exist.
func Page(tasks []domain.Task, page int) (onPage []domain.Task, hasPrev, hasNext bool) {
	if page < 0 {
		page = 0
	}

	start := page * PageSize
	if start >= len(tasks) {
		return nil, page > 0, false
	}

	end := start + PageSize
	if end > len(tasks) {
		end = len(tasks)
	}

	return tasks[start:end], page > 0, end < len(tasks)
}
