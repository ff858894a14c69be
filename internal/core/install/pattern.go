package install

import (
	"errors"
	"fmt"
	"io"
	"regexp"
)

// PatternType names a version-extraction rule.
type PatternType string

// Known pattern types. Custom expressions use PatternTypeRegexp.
const (
	PatternTypeLinuxKernel PatternType = "linux-kernel"
	PatternTypeUBoot       PatternType = "u-boot"
	PatternTypeRegexp      PatternType = "regexp"
)

// ErrInvalidPattern is returned for unknown pattern types or malformed
// custom-pattern fields.
var ErrInvalidPattern = errors.New("invalid install condition pattern")

// defaultBufferSize makes a custom pattern read to EOF when no window
// size is given.
const defaultBufferSize int64 = -1

// Pattern is a resolved version-extraction rule. Known types delegate to
// the family auto-detection of the sniffer; the regexp type applies a
// user-supplied expression to a bounded window.
type Pattern struct {
	// typ is the pattern type this rule was resolved from.
	typ PatternType
	// expr is the custom expression source (regexp type only).
	expr string
	// seek is the window start offset in bytes (regexp type only).
	seek int64
	// bufferSize is the window length in bytes (regexp type only).
	bufferSize int64
	// re is the compiled expression (regexp type only).
	re *regexp.Regexp
}

// ResolvePattern maps the pattern-type option (plus the custom-pattern
// options when applicable) to a concrete extraction rule. Resolution is
// eager: a broken pattern fails object construction, not the later
// metadata generation.
func ResolvePattern(options map[string]any) (*Pattern, error) {
	typ, ok := asString(options[PatternTypeKey])
	if !ok {
		return nil, fmt.Errorf("%w: missing pattern type", ErrInvalidPattern)
	}

	switch PatternType(typ) {
	case PatternTypeLinuxKernel, PatternTypeUBoot:
		for _, key := range []string{PatternKey, SeekKey, BufferSizeKey} {
			if value, present := options[key]; present && value != nil {
				return nil, fmt.Errorf("%w: %s is not allowed with pattern type %q", ErrInvalidPattern, key, typ)
			}
		}

		return &Pattern{typ: PatternType(typ)}, nil
	case PatternTypeRegexp:
		return resolveCustom(options)
	default:
		return nil, fmt.Errorf("%w: unknown pattern type %q", ErrInvalidPattern, typ)
	}
}

// resolveCustom validates and compiles the custom-pattern fields.
func resolveCustom(options map[string]any) (*Pattern, error) {
	expr, ok := asString(options[PatternKey])
	if !ok {
		return nil, fmt.Errorf("%w: missing regular expression", ErrInvalidPattern)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	seek, err := optionalInt64(options, SeekKey, 0)
	if err != nil {
		return nil, err
	}

	if seek < 0 {
		return nil, fmt.Errorf("%w: seek must not be negative", ErrInvalidPattern)
	}

	bufferSize, err := optionalInt64(options, BufferSizeKey, defaultBufferSize)
	if err != nil {
		return nil, err
	}

	if bufferSize <= 0 && bufferSize != defaultBufferSize {
		return nil, fmt.Errorf("%w: buffer size must be positive", ErrInvalidPattern)
	}

	return &Pattern{
		typ:        PatternTypeRegexp,
		expr:       expr,
		seek:       seek,
		bufferSize: bufferSize,
		re:         re,
	}, nil
}

// Type returns the pattern type this rule was resolved from.
func (p *Pattern) Type() PatternType {
	return p.typ
}

// Extract reads the stream and returns the version string the rule
// locates, or ErrVersionNotFound.
func (p *Pattern) Extract(r io.ReadSeeker) (string, error) {
	switch p.typ {
	case PatternTypeLinuxKernel:
		return LinuxKernelVersion(r)
	case PatternTypeUBoot:
		return UBootVersion(r)
	case PatternTypeRegexp:
		return CustomVersion(r, p.re, p.seek, p.bufferSize)
	default:
		return "", fmt.Errorf("%w: unresolved pattern", ErrInvalidPattern)
	}
}

// metadataValue renders the pattern for the "install-if-different"
// metadata fragment: known patterns by name, custom ones in full.
func (p *Pattern) metadataValue() any {
	if p.typ != PatternTypeRegexp {
		return string(p.typ)
	}

	return map[string]any{
		"regexp":      p.expr,
		"seek":        p.seek,
		"buffer-size": p.bufferSize,
	}
}

// templateFragment echoes the pattern options back for templates.
func (p *Pattern) templateFragment() map[string]any {
	fragment := map[string]any{
		PatternTypeKey: string(p.typ),
	}

	if p.typ == PatternTypeRegexp {
		fragment[PatternKey] = p.expr
		fragment[SeekKey] = p.seek
		fragment[BufferSizeKey] = p.bufferSize
	}

	return fragment
}

// String renders the pattern for human-readable object listings.
func (p *Pattern) String() string {
	if p.typ != PatternTypeRegexp {
		return string(p.typ)
	}

	return fmt.Sprintf("regexp, seek=%d, buffer-size=%d", p.seek, p.bufferSize)
}
