// Package session manages per-user conversation state and scratch data.
package session

import (
	"context"
	"errors"
)

// ErrStateNotFound indicates that a user has no stored conversation state.
// Absence is a valid value distinct from any flow state.
var ErrStateNotFound = errors.New("session state not found")

var failureRecorder = func(op string) {}

// RegisterFailureRecorder allows external packages to observe store
// failures, keyed by operation name.
func RegisterFailureRecorder(recorder func(op string)) {
	if recorder == nil {
		failureRecorder = func(string) {}
		return
	}

	failureRecorder = recorder
}

// Store defines the persistence contract for conversation sessions.
//
// GetState and GetData are deliberately asymmetric: a missing state is
// reported via ErrStateNotFound while missing data yields an empty map.
type Store interface {
	// SetState overwrites the current state token for the user.
	SetState(ctx context.Context, userID int64, state string) error
	// GetState returns the current state token or ErrStateNotFound.
	GetState(ctx context.Context, userID int64) (string, error)
	// SetData overwrites the scratch data wholesale. Callers that want to
	// preserve existing keys must read-modify-write.
	SetData(ctx context.Context, userID int64, data map[string]any) error
	// GetData returns the scratch data, or an empty map when nothing is stored.
	GetData(ctx context.Context, userID int64) (map[string]any, error)
	// Clear removes both state and scratch data in one step.
	Clear(ctx context.Context, userID int64) error
}
