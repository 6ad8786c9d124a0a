// Package engine implements the conversation finite-state machine: it maps
// (current state, incoming event) to exactly one handler and owns the shared
// back and cancel transitions.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/taskmate-bot/taskmate/internal/session"
)

const (
	// MsgUnknownAction is sent when no handler matches the event.
	MsgUnknownAction = "Unknown action."
	// MsgChooseAction is the idle prompt sent after leaving a flow.
	MsgChooseAction = "Choose an action in menu"
	// MsgSignUpFirst redirects unregistered users away from action events.
	MsgSignUpFirst = "Sign up first. Enter the /start command"
)

// ActionSeparator splits a composite callback token into action and param.
const ActionSeparator = ":"

// TextHandler processes free-form user input while its state is active.
type TextHandler func(c telebot.Context) error

// ActionHandler processes a button action with its optional parameter.
type ActionHandler func(c telebot.Context, param string) error

// Gate answers whether the acting user may trigger action events.
type Gate interface {
	IsRegistered(ctx context.Context, telegramID int64) bool
}

// LinearFlow is an ordered list of text states with a prompt renderer used
// by back navigation.
type LinearFlow struct {
	Steps  []string
	Render func(c telebot.Context, state string) error
}

var dispatchRecorder = func(kind, key string) {}

// RegisterDispatchRecorder allows external packages to observe dispatches.
func RegisterDispatchRecorder(recorder func(kind, key string)) {
	if recorder == nil {
		dispatchRecorder = func(string, string) {}
		return
	}

	dispatchRecorder = recorder
}

// Engine resolves and executes one handler per inbound event. It holds the
// dispatch tables the flows register at startup; the tables are not mutated
// afterwards, so dispatch runs without locking.
type Engine struct {
	sessions       session.Store
	gate           Gate
	log            *slog.Logger
	textHandlers   map[string]TextHandler
	actionHandlers map[string]ActionHandler
	linearFlows    []LinearFlow
}

// New creates an Engine with empty dispatch tables.
func New(sessions session.Store, gate Gate, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		sessions:       sessions,
		gate:           gate,
		log:            log,
		textHandlers:   make(map[string]TextHandler),
		actionHandlers: make(map[string]ActionHandler),
	}
}

// RegisterText binds a handler to a state token in the text dispatch table.
func (e *Engine) RegisterText(state string, h TextHandler) {
	e.textHandlers[state] = h
}

// RegisterAction binds a handler to an action name in the action dispatch table.
func (e *Engine) RegisterAction(name string, h ActionHandler) {
	e.actionHandlers[name] = h
}

// RegisterLinearFlow declares an ordered step list for back navigation.
func (e *Engine) RegisterLinearFlow(steps []string, render func(c telebot.Context, state string) error) {
	e.linearFlows = append(e.linearFlows, LinearFlow{Steps: steps, Render: render})
}

// HandleText dispatches free-form input on the user's current state. A
// missing or unreadable state finds no handler and answers with the unknown
// action notice, taking no transition.
func (e *Engine) HandleText(c telebot.Context) error {
	if c == nil || c.Sender() == nil {
		e.log.Warn("cannot dispatch text without sender information")
		return nil
	}

	state := e.currentState(context.Background(), c.Sender().ID)

	handler := e.textHandlers[state]
	if handler == nil {
		return c.Send(MsgUnknownAction)
	}

	dispatchRecorder("text", state)
	return handler(c)
}

// HandleAction dispatches a button event. The callback payload is split on
// its first separator into action and param; an unmatched action answers
// with the unknown action notice and leaves the flow.
func (e *Engine) HandleAction(c telebot.Context) error {
	if c == nil || c.Sender() == nil || c.Callback() == nil {
		e.log.Warn("cannot dispatch action without callback information")
		return nil
	}

	defer func() {
		_ = c.Respond()
	}()

	userID := c.Sender().ID
	if e.gate != nil && !e.gate.IsRegistered(context.Background(), userID) {
		return c.Send(MsgSignUpFirst)
	}

	action, param := SplitToken(cleanCallbackData(c.Callback().Data))

	handler := e.actionHandlers[action]
	if handler == nil {
		e.log.Info("no handler registered for action", slog.String("action", action), slog.Int64("user_id", userID))
		if err := c.Send(MsgUnknownAction); err != nil {
			return err
		}
		return e.Cancel(c)
	}

	dispatchRecorder("action", action)
	return handler(c, param)
}

// BackStage implements the shared Back button. Two distinct paths:
//
// Linear rewind: when the current state is a member of a registered step
// list, move to the previous step and re-render its prompt.
//
// Encoded redispatch: otherwise the state token itself is read as
// action[:param] and pushed through the action table. This branch relies on
// the membership check above having already excluded linear states.
func (e *Engine) BackStage(c telebot.Context) error {
	if c == nil || c.Sender() == nil {
		return nil
	}

	ctx := context.Background()
	userID := c.Sender().ID

	state, err := e.sessions.GetState(ctx, userID)
	if err != nil {
		if !errors.Is(err, session.ErrStateNotFound) {
			e.log.Error("failed to read state for back navigation", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return e.Cancel(c)
	}

	for _, flow := range e.linearFlows {
		idx := indexOf(flow.Steps, state)
		if idx < 0 {
			continue
		}

		prev := flow.Steps[0]
		if idx > 0 {
			prev = flow.Steps[idx-1]
		}

		if err := e.sessions.SetState(ctx, userID, prev); err != nil {
			e.log.Error("failed to rewind state", slog.Int64("user_id", userID), slog.Any("error", err))
		}

		dispatchRecorder("back", prev)
		return flow.Render(c, prev)
	}

	action, param := SplitToken(state)
	if handler := e.actionHandlers[action]; handler != nil {
		dispatchRecorder("back", action)
		return handler(c, param)
	}

	e.log.Info("back navigation found no target", slog.String("state", state), slog.Int64("user_id", userID))
	return nil
}

// Cancel leaves the active flow unconditionally: state and scratch are
// removed together and the idle prompt is sent.
func (e *Engine) Cancel(c telebot.Context) error {
	if c == nil || c.Sender() == nil {
		return nil
	}

	userID := c.Sender().ID
	if err := e.sessions.Clear(context.Background(), userID); err != nil {
		e.log.Error("failed to clear session on cancel", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return c.Send(MsgChooseAction)
}

// HasActiveState reports whether the user is inside a flow.
func (e *Engine) HasActiveState(ctx context.Context, userID int64) bool {
	state, err := e.sessions.GetState(ctx, userID)
	return err == nil && state != ""
}

// currentState reads the state token, treating any read failure as absent.
func (e *Engine) currentState(ctx context.Context, userID int64) string {
	state, err := e.sessions.GetState(ctx, userID)
	if err != nil {
		if !errors.Is(err, session.ErrStateNotFound) {
			e.log.Error("failed to read session state", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return ""
	}

	return state
}

// SplitToken separates a composite token into action and param on the first
// separator; param is empty when no separator is present.
func SplitToken(token string) (action, param string) {
	action, param, _ = strings.Cut(token, ActionSeparator)
	return action, param
}

// cleanCallbackData strips the telebot unique-prefix marker and surrounding
// whitespace from raw callback payloads.
func cleanCallbackData(data string) string {
	data = strings.TrimPrefix(data, "\f")
	return strings.TrimSpace(data)
}

func indexOf(items []string, target string) int {
	for i, item := range items {
		if item == target {
			return i
		}
	}

	return -1
}
