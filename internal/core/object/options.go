package object

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// asString returns value as a string when it is one.
func asString(value any) (string, bool) {
	s, ok := value.(string)

	return s, ok
}

// coerce converts a raw option value to the type of the spec default.
// Template files arrive through encoding/json (numbers as float64) and
// the command line arrives as strings, so both are accepted for the
// numeric and boolean options.
func coerce(spec OptionSpec, value any) (any, error) {
	switch spec.Default.(type) {
	case int64:
		return coerceInt64(spec.Key, value)
	case bool:
		return coerceBool(spec.Key, value)
	default:
		s, ok := asString(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidObject, spec.Key, value)
		}

		return s, nil
	}
}

func coerceInt64(key string, value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidObject, key, v)
		}

		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer: %v", ErrInvalidObject, key, err)
		}

		return n, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidObject, key, v)
		}

		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidObject, key, value)
	}
}

func coerceBool(key string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidObject, key, v)
		}

		return b, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidObject, key, value)
	}
}
