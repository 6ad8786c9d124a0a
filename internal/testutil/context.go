package testutil

import (
	telebot "gopkg.in/telebot.v3"
)

// FakeContext implements the handful of telebot.Context methods the flow
// handlers touch. The embedded interface is left nil, so any call outside
// that set panics and points straight at the untested assumption.
type FakeContext struct {
	telebot.Context

	User         *telebot.User
	MessageText  string
	CallbackData string

	Sent      []string
	Responded bool
}

// NewFakeContext builds a context for a plain text message.
func NewFakeContext(userID int64, text string) *FakeContext {
	return &FakeContext{
		User:        &telebot.User{ID: userID},
		MessageText: text,
	}
}

// NewFakeCallback builds a context for an inline button press.
func NewFakeCallback(userID int64, data string) *FakeContext {
	return &FakeContext{
		User:         &telebot.User{ID: userID},
		CallbackData: data,
	}
}

func (f *FakeContext) Sender() *telebot.User {
	return f.User
}

func (f *FakeContext) Text() string {
	return f.MessageText
}

func (f *FakeContext) Callback() *telebot.Callback {
	if f.CallbackData == "" {
		return nil
	}

	return &telebot.Callback{
		Sender: f.User,
		Data:   f.CallbackData,
	}
}

func (f *FakeContext) Send(what interface{}, _ ...interface{}) error {
	if text, ok := what.(string); ok {
		f.Sent = append(f.Sent, text)
	}
	return nil
}

func (f *FakeContext) Reply(what interface{}, _ ...interface{}) error {
	return f.Send(what)
}

func (f *FakeContext) Respond(_ ...*telebot.CallbackResponse) error {
	f.Responded = true
	return nil
}

// LastSent returns the most recent message sent through the context.
func (f *FakeContext) LastSent() string {
	if len(f.Sent) == 0 {
		return ""
	}

	return f.Sent[len(f.Sent)-1]
}
