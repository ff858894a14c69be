package install

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Kind is the install condition variant carried by an update object.
type Kind string

// Install condition kinds.
const (
	// KindAlways installs the object unconditionally.
	KindAlways Kind = "always"
	// KindContentDiverges installs when the object checksum differs from
	// what is on the device.
	KindContentDiverges Kind = "content-diverges"
	// KindVersionDiverges installs when the extracted version string
	// differs from the installed one.
	KindVersionDiverges Kind = "version-diverges"
)

// Flat option keys understood by NewCondition.
const (
	// ConditionKey selects the condition kind.
	ConditionKey = "install-condition"
	// PatternTypeKey names the version-extraction pattern.
	PatternTypeKey = "install-condition-pattern-type"
	// PatternKey carries the custom regular expression.
	PatternKey = "install-condition-pattern"
	// SeekKey is the custom window start offset.
	SeekKey = "install-condition-seek"
	// BufferSizeKey is the custom window length.
	BufferSizeKey = "install-condition-buffer-size"
	// VersionKey carries a pre-extracted version (legacy packages).
	VersionKey = "install-condition-version"
)

// metadataKey is the fragment key emitted into object metadata.
const metadataKey = "install-if-different"

// ErrInvalidCondition is returned for malformed or inconsistent
// construction input.
var ErrInvalidCondition = errors.New("invalid install condition")

// patternOptionKeys are only meaningful for version-diverges conditions.
//
//nolint:gochecknoglobals // Static key list.
var patternOptionKeys = []string{PatternTypeKey, PatternKey, SeekKey, BufferSizeKey, VersionKey}

// OptionKeys lists every flat option key owned by install conditions.
// Object modes that do not support conditions use it to reject them.
func OptionKeys() []string {
	return append([]string{ConditionKey}, patternOptionKeys...)
}

// Condition decides whether an object needs installing. The kind is
// fixed at construction; only the lazily extracted version is written
// later, at most once.
type Condition struct {
	// kind is the condition variant.
	kind Kind
	// pattern is the resolved extraction rule (version-diverges only).
	pattern *Pattern
	// version is the memoized extraction result.
	version string
	// versionKnown marks version as computed.
	versionKnown bool
}

// NewCondition builds a condition from the flat option mapping of an
// update object. A missing install-condition key means "always", which
// keeps objects from older templates valid.
func NewCondition(options map[string]any) (*Condition, error) {
	kind := KindAlways

	if raw, present := options[ConditionKey]; present && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: condition must be a string, got %T", ErrInvalidCondition, raw)
		}

		kind = Kind(s)
	}

	switch kind {
	case KindAlways, KindContentDiverges:
		// Pattern options with a non-version condition signal an
		// inconsistent template; reject instead of silently dropping.
		for _, key := range patternOptionKeys {
			if value, present := options[key]; present && value != nil {
				return nil, fmt.Errorf("%w: %s is not allowed with condition %q", ErrInvalidCondition, key, kind)
			}
		}

		return &Condition{kind: kind}, nil
	case KindVersionDiverges:
		pattern, err := ResolvePattern(options)
		if err != nil {
			return nil, err
		}

		condition := &Condition{kind: kind, pattern: pattern}

		// Legacy packages carry the version they were built with.
		if version, ok := asString(options[VersionKey]); ok {
			condition.version = version
			condition.versionKnown = true
		}

		return condition, nil
	default:
		return nil, fmt.Errorf("%w: unknown condition %q", ErrInvalidCondition, kind)
	}
}

// Kind returns the condition variant.
func (c *Condition) Kind() Kind {
	return c.kind
}

// Version extracts the version string from the file at path, memoizing
// the result: the file is read at most once per condition instance.
func (c *Condition) Version(path string) (string, error) {
	if c.kind != KindVersionDiverges {
		return "", nil
	}

	if c.versionKnown {
		return c.version, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	version, err := c.pattern.Extract(f)
	if err != nil {
		return "", err
	}

	c.version = version
	c.versionKnown = true

	return version, nil
}

// ToMetadata produces the metadata fragment of the condition, reading
// the file at path when a version must be extracted. An extraction
// failure is fatal to the metadata generation: there is no fallback.
func (c *Condition) ToMetadata(path string) (map[string]any, error) {
	switch c.kind {
	case KindAlways:
		return map[string]any{}, nil
	case KindContentDiverges:
		return map[string]any{metadataKey: "sha256sum"}, nil
	case KindVersionDiverges:
		version, err := c.Version(path)
		if err != nil {
			return nil, err
		}

		return map[string]any{
			metadataKey: map[string]any{
				"version": version,
				"pattern": c.pattern.metadataValue(),
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown condition %q", ErrInvalidCondition, c.kind)
	}
}

// ToTemplate echoes the construction options back for templates. The
// version is never included: templates describe objects before their
// files necessarily exist. Always-install objects contribute nothing.
func (c *Condition) ToTemplate() map[string]any {
	if c.kind == KindAlways {
		return map[string]any{}
	}

	fragment := map[string]any{ConditionKey: string(c.kind)}

	if c.kind == KindVersionDiverges {
		for key, value := range c.pattern.templateFragment() {
			fragment[key] = value
		}
	}

	return fragment
}

// String renders a one-line human-readable summary.
func (c *Condition) String() string {
	kind := strings.ReplaceAll(string(c.kind), "-", " ")

	if c.kind != KindVersionDiverges {
		return fmt.Sprintf("install condition: %s", kind)
	}

	return fmt.Sprintf("install condition: %s (%s)", kind, c.pattern)
}
