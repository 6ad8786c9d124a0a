package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	telebot "gopkg.in/telebot.v3"

	"github.com/taskmate-bot/taskmate/internal/bot/handlers"
	apperrors "github.com/taskmate-bot/taskmate/internal/errors"
	"github.com/taskmate-bot/taskmate/pkg/logger"
	"github.com/taskmate-bot/taskmate/pkg/metrics"
)

// RecoveryMiddleware catches panics, reports them via the centralized
// handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := apperrors.GenericUserMessage
					if errHandler != nil {
						appErr := apperrors.NewStorageError(fmt.Errorf("panic recovered: %v", r))
						if msg := errHandler.Handle(context.Background(), appErr); msg != "" {
							userMsg = msg
						}
					}

					if c != nil {
						if sendErr := c.Send(userMsg); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for
// handler failures. Handlers return errors; the user sees the resolved
// message and the update counts as handled.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			code, severity := apperrors.Meta(err)
			metrics.RecordError(code, severity)

			userMsg := apperrors.GenericUserMessage
			if errHandler != nil {
				ctx := logger.WithCorrelationID(context.Background(), correlationID(c))
				if msg := errHandler.Handle(ctx, err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates under a
// per-update correlation identifier.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()

			id := uuid.NewString()
			if c != nil {
				c.Set(correlationKey, id)
			}

			userID := int64(0)
			if c != nil && c.Sender() != nil {
				userID = c.Sender().ID
			}

			log.Info("handling update",
				slog.String("correlation_id", id),
				slog.Int64("user_id", userID),
				slog.String("action", updateAction(c)),
			)

			err := next(c)

			log.Info("handled update",
				slog.String("correlation_id", id),
				slog.Int64("user_id", userID),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// MetricsMiddleware records update counters and handling duration.
func MetricsMiddleware() handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			err := next(c)

			status := "ok"
			if err != nil {
				status = "error"
			}
			metrics.RecordUpdate(updateKind(c), status, time.Since(start))

			return err
		}
	}
}

const correlationKey = "correlation_id"

func correlationID(c telebot.Context) string {
	if c == nil {
		return ""
	}

	id, _ := c.Get(correlationKey).(string)
	return id
}

func updateKind(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}
	if c.Callback() != nil {
		return "callback"
	}
	return "text"
}

func updateAction(c telebot.Context) string {
	if c == nil {
		return ""
	}
	if cb := c.Callback(); cb != nil {
		return cb.Data
	}
	return c.Text()
}
