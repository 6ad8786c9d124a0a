package handlers

import telebot "gopkg.in/telebot.v3"

// Handler processes one incoming update.
type Handler func(c telebot.Context) error

// Middleware wraps a Handler with cross-cutting behavior.
type Middleware func(Handler) Handler
