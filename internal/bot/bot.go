package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/taskmate-bot/taskmate/internal/bot/handlers"
	"github.com/taskmate-bot/taskmate/internal/engine"
	apperrors "github.com/taskmate-bot/taskmate/internal/errors"
	"github.com/taskmate-bot/taskmate/internal/session"
	"github.com/taskmate-bot/taskmate/internal/task"
	"github.com/taskmate-bot/taskmate/internal/user"
	"github.com/taskmate-bot/taskmate/pkg/config"
)

// Bot wraps telebot.Bot with the conversation engine and command routing.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.Config
	engine     *engine.Engine
	router     *Router
	errHandler *apperrors.Handler
}

// New builds a telegram bot instance configured according to the
// application settings and registers all flows.
func New(
	cfg config.Config,
	log *slog.Logger,
	sessions session.Store,
	users *user.Service,
	tasks *task.Service,
) (*Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.Server.Port,
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	eng := engine.New(sessions, users, log)
	router := NewRouter(eng, log)
	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		engine:     eng,
		router:     router,
		errHandler: errHandler,
	}

	b.setupRouter(sessions, users, tasks)

	tb.Handle(telebot.OnText, router.Route)
	tb.Handle(telebot.OnCallback, router.Route)

	return b, nil
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// PublishMenu installs the persistent command menu shown to registered
// users.
func (b *Bot) PublishMenu() error {
	return b.telebot.SetCommands([]telebot.Command{
		{Text: "create_task", Description: "Create a new task"},
		{Text: "my_tasks", Description: "Show your tasks"},
	})
}

func (b *Bot) setupRouter(sessions session.Store, users *user.Service, tasks *task.Service) {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(MetricsMiddleware())

	registration := handlers.NewRegistration(users, sessions, b, b.log)
	registration.Register(b.engine)

	taskFlow := handlers.NewTasks(tasks, users, sessions, b.log)
	taskFlow.Register(b.engine)

	b.router.RegisterCommand(CommandStart, registration.Start)
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelCommand(sessions, b.log))
	b.router.RegisterCommand(CommandCreateTask, taskFlow.CreateTask)
	b.router.RegisterCommand(CommandMyTasks, taskFlow.MyTasks)
}
