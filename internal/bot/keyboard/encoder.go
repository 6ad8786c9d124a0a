// Package keyboard builds the inline keyboards used by the task flows.
package keyboard

import (
	"fmt"
	"strings"
)

const (
	// Separator joins an action name with its parameter in callback data.
	Separator = ":"
	// DataLimitBytes is the Telegram limit on callback payload size.
	DataLimitBytes = 64
)

// Encode joins an action with an optional parameter into a callback payload.
func Encode(action, param string) (string, error) {
	payload := action
	if param != "" {
		payload = action + Separator + param
	}

	if len(payload) > DataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", DataLimitBytes, len(payload))
	}

	return payload, nil
}

// Decode splits a callback payload on the first separator. The parameter is
// empty when no separator is present.
func Decode(payload string) (action, param string) {
	idx := strings.Index(payload, Separator)
	if idx == -1 {
		return payload, ""
	}

	return payload[:idx], payload[idx+len(Separator):]
}
