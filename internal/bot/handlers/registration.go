// Package handlers defines the registration and task conversation flows.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/taskmate-bot/taskmate/internal/engine"
	"github.com/taskmate-bot/taskmate/internal/session"
	"github.com/taskmate-bot/taskmate/internal/user"
)

// Registration flow states.
const (
	StateWaitingUsername = "waiting_for_username"
	StateWaitingLogin    = "waiting_for_login"
)

// MenuPublisher installs the persistent bot command menu.
type MenuPublisher interface {
	PublishMenu() error
}

// Registration implements the two-step registration flow.
type Registration struct {
	users    *user.Service
	sessions session.Store
	menu     MenuPublisher
	log      *slog.Logger
}

// NewRegistration wires the registration flow dependencies.
func NewRegistration(users *user.Service, sessions session.Store, menu MenuPublisher, log *slog.Logger) *Registration {
	if log == nil {
		log = slog.Default()
	}

	return &Registration{
		users:    users,
		sessions: sessions,
		menu:     menu,
		log:      log,
	}
}

// Register installs the flow's text states into the engine.
func (h *Registration) Register(eng *engine.Engine) {
	eng.RegisterText(StateWaitingUsername, h.Username)
	eng.RegisterText(StateWaitingLogin, h.Login)
}

// Start handles /start: already registered users are short-circuited to the
// menu, everyone else enters the flow.
func (h *Registration) Start(c telebot.Context) error {
	userID := c.Sender().ID
	ctx := context.Background()

	if h.users.IsRegistered(ctx, userID) {
		return c.Send("You are already registered! Select an action in menu")
	}

	if err := h.sessions.SetState(ctx, userID, StateWaitingUsername); err != nil {
		h.log.Error("failed to enter registration", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return c.Send("Enter your name:")
}

// Username stores the name into scratch and advances to the login step.
func (h *Registration) Username(c telebot.Context) error {
	userID := c.Sender().ID
	ctx := context.Background()

	if err := h.sessions.SetData(ctx, userID, map[string]any{"username": c.Text()}); err != nil {
		h.log.Error("failed to stash username", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	if err := h.sessions.SetState(ctx, userID, StateWaitingLogin); err != nil {
		h.log.Error("failed to advance registration", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return c.Send("Enter your login:")
}

// Login validates uniqueness and completes the registration. A collision
// re-prompts without a state transition.
func (h *Registration) Login(c telebot.Context) error {
	userID := c.Sender().ID
	ctx := context.Background()
	login := c.Text()

	data, err := h.sessions.GetData(ctx, userID)
	if err != nil {
		h.log.Error("failed to read registration scratch", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	username, _ := session.String(data, "username")

	if err := h.users.Register(ctx, userID, username, login); err != nil {
		if errors.Is(err, user.ErrLoginTaken) {
			return c.Send("This login is already taken. Please enter a different login:")
		}
		return err
	}

	if err := h.sessions.Clear(ctx, userID); err != nil {
		h.log.Error("failed to leave registration", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	if err := c.Send(fmt.Sprintf("Registration is complete! Name: %s, login: %s! Select an action in menu", username, login)); err != nil {
		return err
	}

	if h.menu != nil {
		if err := h.menu.PublishMenu(); err != nil {
			h.log.Error("failed to publish command menu", slog.Any("error", err))
			return nil
		}
		return c.Send("Bot commands have been set! Use the menu to start working.")
	}

	return nil
}
