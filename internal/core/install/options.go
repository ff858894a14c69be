package install

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// asString extracts a non-empty string option value.
func asString(value any) (string, bool) {
	s, ok := value.(string)
	if !ok || s == "" {
		return "", false
	}

	return s, true
}

// optionalInt64 reads an integer option, tolerating the numeric types
// produced by JSON decoding and CLI parsing. A missing or nil value
// yields the fallback.
func optionalInt64(options map[string]any, key string, fallback int64) (int64, error) {
	raw, present := options[key]
	if !present || raw == nil {
		return fallback, nil
	}

	switch value := raw.(type) {
	case int:
		return int64(value), nil
	case int64:
		return value, nil
	case float64:
		if value != math.Trunc(value) {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidPattern, key)
		}

		return int64(value), nil
	case json.Number:
		n, err := value.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidPattern, key)
		}

		return n, nil
	case string:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidPattern, key)
		}

		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidPattern, key, raw)
	}
}
