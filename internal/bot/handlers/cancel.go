package handlers

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/taskmate-bot/taskmate/internal/session"
)

// NewCancelCommand builds the /cancel handler: it leaves the active flow,
// or reports that there is nothing to cancel.
func NewCancelCommand(sessions session.Store, log *slog.Logger) func(c telebot.Context) error {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		userID := c.Sender().ID
		ctx := context.Background()

		_, err := sessions.GetState(ctx, userID)
		if err != nil {
			if !errors.Is(err, session.ErrStateNotFound) {
				log.Error("failed to read state on cancel", slog.Int64("user_id", userID), slog.Any("error", err))
			}
			return c.Send("No active process.")
		}

		if err := sessions.Clear(ctx, userID); err != nil {
			log.Error("failed to clear session on cancel", slog.Int64("user_id", userID), slog.Any("error", err))
		}

		return c.Send("The process has been cancelled.")
	}
}
