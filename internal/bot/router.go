// Package bot wires the Telegram transport, the command router, and the
// conversation engine together.
package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/taskmate-bot/taskmate/internal/bot/handlers"
	"github.com/taskmate-bot/taskmate/internal/engine"
)

// Router directs incoming updates: slash commands go to their registered
// handler, callbacks and everything else fall through to the engine.
type Router struct {
	mu          sync.RWMutex
	commands    map[string]handlers.Handler
	engine      *engine.Engine
	middlewares []handlers.Middleware
	log         *slog.Logger
}

// NewRouter builds a Router with an empty command registry.
func NewRouter(eng *engine.Engine, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands: make(map[string]handlers.Handler),
		engine:   eng,
		log:      log,
	}
}

// RegisterCommand registers a handler for a bot command.
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Route directs the incoming update to the appropriate handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	if c.Callback() != nil {
		return r.execute(r.engine.HandleAction, c)
	}

	text := c.Text()
	if strings.HasPrefix(text, "/") {
		if handler := r.commandHandler(commandName(text)); handler != nil {
			return r.execute(handler, c)
		}
	}

	return r.execute(r.engine.HandleText, c)
}

func (r *Router) execute(h handlers.Handler, c telebot.Context) error {
	wrapped := r.applyMiddlewares(h)
	if wrapped == nil {
		return nil
	}
	return wrapped(c)
}

func (r *Router) commandHandler(cmd string) handlers.Handler {
	r.mu.RLock()
	handler := r.commands[cmd]
	r.mu.RUnlock()
	return handler
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	if h == nil {
		return nil
	}

	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}

// commandName strips the bot-mention suffix Telegram appends in groups.
func commandName(text string) string {
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd
}
