package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/taskmate-bot/taskmate/internal/session"
	"github.com/taskmate-bot/taskmate/internal/testutil"
)

type allowAllGate struct{}

func (allowAllGate) IsRegistered(context.Context, int64) bool { return true }

type denyAllGate struct{}

func (denyAllGate) IsRegistered(context.Context, int64) bool { return false }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(gate Gate) (*Engine, *session.MemoryStore) {
	store := session.NewMemoryStore()
	return New(store, gate, testLogger()), store
}

func TestSplitToken(t *testing.T) {
	tests := []struct {
		token  string
		action string
		param  string
	}{
		{token: "my_tasks", action: "my_tasks", param: ""},
		{token: "my_tasks:2", action: "my_tasks", param: "2"},
		{token: "detail_task:17", action: "detail_task", param: "17"},
		{token: "a:b:c", action: "a", param: "b:c"},
		{token: "", action: "", param: ""},
	}

	for _, tt := range tests {
		action, param := SplitToken(tt.token)
		assert.Equal(t, tt.action, action, tt.token)
		assert.Equal(t, tt.param, param, tt.token)
	}
}

func TestEngine_HandleText_NoState(t *testing.T) {
	eng, _ := newTestEngine(allowAllGate{})
	eng.RegisterText("waiting_for_name", func(c telebot.Context) error {
		t.Fatal("handler must not run without the matching state")
		return nil
	})

	c := testutil.NewFakeContext(1, "hello")
	require.NoError(t, eng.HandleText(c))
	assert.Equal(t, MsgUnknownAction, c.LastSent())
}

func TestEngine_HandleText_DispatchesOnState(t *testing.T) {
	eng, store := newTestEngine(allowAllGate{})
	require.NoError(t, store.SetState(context.Background(), 1, "waiting_for_name"))

	called := false
	eng.RegisterText("waiting_for_name", func(c telebot.Context) error {
		called = true
		return nil
	})

	require.NoError(t, eng.HandleText(testutil.NewFakeContext(1, "laundry")))
	assert.True(t, called)
}

func TestEngine_HandleAction_GateRedirectsUnregistered(t *testing.T) {
	eng, _ := newTestEngine(denyAllGate{})
	eng.RegisterAction("my_tasks", func(c telebot.Context, param string) error {
		t.Fatal("gated handler must not run")
		return nil
	})

	c := testutil.NewFakeCallback(1, "my_tasks")
	require.NoError(t, eng.HandleAction(c))
	assert.Equal(t, MsgSignUpFirst, c.LastSent())
	assert.True(t, c.Responded)
}

func TestEngine_HandleAction_SplitsParam(t *testing.T) {
	eng, _ := newTestEngine(allowAllGate{})

	var gotParam string
	eng.RegisterAction("detail_task", func(c telebot.Context, param string) error {
		gotParam = param
		return nil
	})

	require.NoError(t, eng.HandleAction(testutil.NewFakeCallback(1, "detail_task:17")))
	assert.Equal(t, "17", gotParam)
}

func TestEngine_HandleAction_UnknownActionCancels(t *testing.T) {
	eng, store := newTestEngine(allowAllGate{})
	ctx := context.Background()
	require.NoError(t, store.SetState(ctx, 1, "waiting_for_name"))
	require.NoError(t, store.SetData(ctx, 1, map[string]any{"task_name": "x"}))

	c := testutil.NewFakeCallback(1, "no_such_action")
	require.NoError(t, eng.HandleAction(c))

	require.Len(t, c.Sent, 2)
	assert.Equal(t, MsgUnknownAction, c.Sent[0])
	assert.Equal(t, MsgChooseAction, c.Sent[1])

	_, err := store.GetState(ctx, 1)
	assert.ErrorIs(t, err, session.ErrStateNotFound)

	data, err := store.GetData(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestEngine_BackStage_LinearRewind(t *testing.T) {
	eng, store := newTestEngine(allowAllGate{})
	ctx := context.Background()

	var rendered string
	eng.RegisterLinearFlow(
		[]string{"waiting_for_name", "waiting_for_description"},
		func(c telebot.Context, state string) error {
			rendered = state
			return nil
		},
	)

	require.NoError(t, store.SetState(ctx, 1, "waiting_for_description"))
	require.NoError(t, store.SetData(ctx, 1, map[string]any{"task_name": "laundry"}))

	require.NoError(t, eng.BackStage(testutil.NewFakeCallback(1, "back_stage")))

	state, err := store.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "waiting_for_name", state)
	assert.Equal(t, "waiting_for_name", rendered)

	// Scratch collected before the rewound step survives.
	data, err := store.GetData(ctx, 1)
	require.NoError(t, err)
	name, _ := session.String(data, "task_name")
	assert.Equal(t, "laundry", name)
}

func TestEngine_BackStage_FirstStepStays(t *testing.T) {
	eng, store := newTestEngine(allowAllGate{})
	ctx := context.Background()

	var rendered string
	eng.RegisterLinearFlow(
		[]string{"waiting_for_name", "waiting_for_description"},
		func(c telebot.Context, state string) error {
			rendered = state
			return nil
		},
	)

	require.NoError(t, store.SetState(ctx, 1, "waiting_for_name"))
	require.NoError(t, eng.BackStage(testutil.NewFakeCallback(1, "back_stage")))

	assert.Equal(t, "waiting_for_name", rendered)
}

func TestEngine_BackStage_RedispatchesEncodedState(t *testing.T) {
	eng, store := newTestEngine(allowAllGate{})
	ctx := context.Background()

	eng.RegisterLinearFlow(
		[]string{"waiting_for_name", "waiting_for_description"},
		func(c telebot.Context, state string) error { return nil },
	)

	var gotAction, gotParam string
	eng.RegisterAction("my_tasks", func(c telebot.Context, param string) error {
		gotAction, gotParam = "my_tasks", param
		return nil
	})

	// The detail view stores a redispatchable token as its state.
	require.NoError(t, store.SetState(ctx, 1, "my_tasks:0"))
	require.NoError(t, eng.BackStage(testutil.NewFakeCallback(1, "back_stage")))

	assert.Equal(t, "my_tasks", gotAction)
	assert.Equal(t, "0", gotParam)
}

func TestEngine_BackStage_NoStateCancels(t *testing.T) {
	eng, _ := newTestEngine(allowAllGate{})

	c := testutil.NewFakeCallback(1, "back_stage")
	require.NoError(t, eng.BackStage(c))
	assert.Equal(t, MsgChooseAction, c.LastSent())
}

func TestEngine_Cancel_ClearsStateAndScratch(t *testing.T) {
	eng, store := newTestEngine(allowAllGate{})
	ctx := context.Background()

	require.NoError(t, store.SetState(ctx, 1, "waiting_for_login"))
	require.NoError(t, store.SetData(ctx, 1, map[string]any{"username": "alice"}))

	c := testutil.NewFakeCallback(1, "cancel_task")
	require.NoError(t, eng.Cancel(c))
	assert.Equal(t, MsgChooseAction, c.LastSent())

	// A text event in the same turn finds no handler anymore.
	next := testutil.NewFakeContext(1, "anything")
	require.NoError(t, eng.HandleText(next))
	assert.Equal(t, MsgUnknownAction, next.LastSent())
}
