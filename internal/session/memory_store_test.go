package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_MatchesStoreContract(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.GetState(ctx, 1)
	assert.ErrorIs(t, err, ErrStateNotFound)

	data, err := store.GetData(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, store.SetState(ctx, 1, "waiting_for_name"))
	require.NoError(t, store.SetData(ctx, 1, map[string]any{"task_name": "dishes"}))

	state, err := store.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "waiting_for_name", state)

	require.NoError(t, store.Clear(ctx, 1))

	_, err = store.GetState(ctx, 1)
	assert.ErrorIs(t, err, ErrStateNotFound)

	data, err = store.GetData(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestMemoryStore_DataIsCopied(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := map[string]any{"username": "bob"}
	require.NoError(t, store.SetData(ctx, 2, original))

	original["username"] = "mallory"

	data, err := store.GetData(ctx, 2)
	require.NoError(t, err)

	name, _ := String(data, "username")
	assert.Equal(t, "bob", name)
}
