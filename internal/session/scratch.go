package session

import "encoding/json"

// Scratch helpers. Data round-trips through JSON, so numeric values come
// back as float64 and nested maps as map[string]any; these accessors hide
// that from the flow handlers.

// Child returns the nested map stored under key, or nil.
func Child(data map[string]any, key string) map[string]any {
	if data == nil {
		return nil
	}

	child, _ := data[key].(map[string]any)
	return child
}

// String returns the string stored under key.
func String(data map[string]any, key string) (string, bool) {
	if data == nil {
		return "", false
	}

	value, ok := data[key].(string)
	return value, ok
}

// Int64 returns the integer stored under key, coercing the numeric types a
// JSON round-trip can produce.
func Int64(data map[string]any, key string) (int64, bool) {
	if data == nil {
		return 0, false
	}

	switch v := data[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
