package install

import (
	"errors"
	"fmt"
)

var (
	// ErrLegacyFormat is returned when a legacy install-if-different
	// value is neither a string nor a mapping.
	ErrLegacyFormat = errors.New("malformed install-if-different value")

	// ErrLegacyIncomplete is returned when a legacy mapping lacks a
	// required field.
	ErrLegacyIncomplete = errors.New("incomplete install-if-different value")
)

// NormalizeLegacy rewrites the old install-if-different schema into the
// flat install-condition keys before construction. Options without the
// legacy key pass through untouched. The legacy forms are:
//
//	"sha256sum"                       -> content-diverges
//	{"version": v, "pattern": name}   -> version-diverges, known pattern
//	{"version": v, "pattern": {...}}  -> version-diverges, custom regexp
func NormalizeLegacy(options map[string]any) (map[string]any, error) {
	raw, present := options[metadataKey]
	if !present || raw == nil {
		return options, nil
	}

	normalized := make(map[string]any, len(options)+4)
	for key, value := range options {
		if key != metadataKey {
			normalized[key] = value
		}
	}

	switch legacy := raw.(type) {
	case string:
		normalized[ConditionKey] = string(KindContentDiverges)
	case map[string]any:
		if err := normalizeLegacyVersion(normalized, legacy); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: expected string or mapping, got %T", ErrLegacyFormat, raw)
	}

	return normalized, nil
}

// normalizeLegacyVersion rewrites the mapping form of the legacy schema.
func normalizeLegacyVersion(normalized map[string]any, legacy map[string]any) error {
	version, ok := asString(legacy["version"])
	if !ok {
		return fmt.Errorf("%w: missing version", ErrLegacyIncomplete)
	}

	normalized[ConditionKey] = string(KindVersionDiverges)
	normalized[VersionKey] = version

	switch pattern := legacy["pattern"].(type) {
	case string:
		if PatternType(pattern) != PatternTypeLinuxKernel && PatternType(pattern) != PatternTypeUBoot {
			return fmt.Errorf("%w: unknown pattern %q", ErrLegacyIncomplete, pattern)
		}

		normalized[PatternTypeKey] = pattern
	case map[string]any:
		expr, exprOK := asString(pattern["regexp"])
		if !exprOK {
			return fmt.Errorf("%w: missing regexp", ErrLegacyIncomplete)
		}

		seek, err := optionalInt64(pattern, "seek", 0)
		if err != nil {
			return err
		}

		bufferSize, err := optionalInt64(pattern, "buffer-size", defaultBufferSize)
		if err != nil {
			return err
		}

		normalized[PatternTypeKey] = string(PatternTypeRegexp)
		normalized[PatternKey] = expr
		normalized[SeekKey] = seek
		normalized[BufferSizeKey] = bufferSize
	default:
		return fmt.Errorf("%w: missing pattern", ErrLegacyIncomplete)
	}

	return nil
}
