package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fwpack/fwpack/internal/core/compression"
	"github.com/fwpack/fwpack/internal/core/install"
)

// Reserved option keys shared by every mode.
const (
	filenameKey = "filename"
	modeKey     = "mode"
)

// ErrInvalidObject is returned for missing, unknown or ill-typed object
// options.
var ErrInvalidObject = errors.New("invalid object options")

// Object is one payload of an update package: a local file plus the
// installation instructions the device will follow.
type Object struct {
	// filename is the payload path as given by the user.
	filename string
	// mode is the resolved installation strategy.
	mode *Mode
	// values holds the mode options with defaults applied.
	values map[string]any
	// condition decides whether the device installs the payload.
	condition *install.Condition
}

// NewObject validates the flat option mapping of an object and resolves
// its mode, mode options and install condition. Every error is reported
// at construction; no file is read until metadata is generated.
func NewObject(options map[string]any) (*Object, error) {
	filename, ok := asString(options[filenameKey])
	if !ok || filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidObject)
	}

	modeName, ok := asString(options[modeKey])
	if !ok || modeName == "" {
		return nil, fmt.Errorf("%w: mode is required", ErrInvalidObject)
	}

	mode, err := ModeByName(modeName)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(mode.Options))

	for _, spec := range mode.Options {
		raw, present := options[spec.Key]
		if !present || raw == nil {
			if spec.Required {
				return nil, fmt.Errorf("%w: mode %s requires option %s", ErrInvalidObject, mode.Name, spec.Key)
			}

			values[spec.Key] = spec.Default

			continue
		}

		value, err := coerce(spec, raw)
		if err != nil {
			return nil, err
		}

		values[spec.Key] = value
	}

	if err := rejectUnknownOptions(mode, options); err != nil {
		return nil, err
	}

	conditionOptions := options
	if !mode.SupportsCondition {
		conditionOptions = map[string]any{}
	}

	condition, err := install.NewCondition(conditionOptions)
	if err != nil {
		return nil, err
	}

	return &Object{
		filename:  filename,
		mode:      mode,
		values:    values,
		condition: condition,
	}, nil
}

// rejectUnknownOptions fails on any non-nil option the mode does not
// declare. Condition keys pass through for condition-capable modes and
// are rejected outright for the rest.
func rejectUnknownOptions(mode *Mode, options map[string]any) error {
	conditionKeys := make(map[string]bool)
	for _, key := range install.OptionKeys() {
		conditionKeys[key] = true
	}

	for key, value := range options {
		if value == nil || key == filenameKey || key == modeKey {
			continue
		}

		if _, ok := mode.spec(key); ok {
			continue
		}

		if conditionKeys[key] {
			if mode.SupportsCondition {
				continue
			}

			return fmt.Errorf("%w: mode %s does not support install conditions", ErrInvalidObject, mode.Name)
		}

		return fmt.Errorf("%w: option %s is not valid for mode %s", ErrInvalidObject, key, mode.Name)
	}

	return nil
}

// Filename returns the payload path.
func (o *Object) Filename() string {
	return o.filename
}

// ModeName returns the installation mode name.
func (o *Object) ModeName() string {
	return o.mode.Name
}

// Condition returns the install condition.
func (o *Object) Condition() *install.Condition {
	return o.condition
}

// Option returns the resolved value of a mode option.
func (o *Object) Option(key string) any {
	return o.values[key]
}

// ToTemplate renders the object for the local package file: filename,
// mode, every mode option with defaults spelled out, and the condition
// fragment.
func (o *Object) ToTemplate() map[string]any {
	template := map[string]any{
		filenameKey: o.filename,
		modeKey:     o.mode.Name,
	}

	for key, value := range o.values {
		template[key] = value
	}

	for key, value := range o.condition.ToTemplate() {
		template[key] = value
	}

	return template
}

// ToMetadata renders the object for the server: the template fields
// plus the payload size, its sha256sum, the compression fragment and
// the condition fragment. The payload file is read here, not before.
func (o *Object) ToMetadata() (map[string]any, error) {
	metadata := map[string]any{
		filenameKey: o.filename,
		modeKey:     o.mode.Name,
	}

	for key, value := range o.values {
		metadata[key] = value
	}

	size, checksum, err := o.digest()
	if err != nil {
		return nil, err
	}

	metadata["size"] = size
	metadata["sha256sum"] = checksum

	conditionFragment, err := o.condition.ToMetadata(o.filename)
	if err != nil {
		return nil, err
	}

	for key, value := range conditionFragment {
		metadata[key] = value
	}

	format, err := compression.DetectFile(o.filename)
	if err != nil {
		return nil, err
	}

	if format != compression.FormatNone {
		uncompressed, err := compression.UncompressedSize(o.filename)
		if err != nil {
			return nil, err
		}

		metadata["compressed"] = true
		metadata["required-uncompressed-size"] = uncompressed
	}

	return metadata, nil
}

// digest streams the payload once for its size and sha256sum.
func (o *Object) digest() (int64, string, error) {
	f, err := os.Open(o.filename)
	if err != nil {
		return 0, "", fmt.Errorf("open %s: %w", o.filename, err)
	}
	defer func() {
		_ = f.Close()
	}()

	hasher := sha256.New()

	size, err := io.Copy(hasher, f)
	if err != nil {
		return 0, "", fmt.Errorf("read %s: %w", o.filename, err)
	}

	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}

// String renders a multi-line listing entry for show output.
func (o *Object) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s [mode: %s]\n", o.filename, o.mode.Name)

	for _, spec := range o.mode.Options {
		fmt.Fprintf(&b, "    %s: %v\n", spec.Key, o.values[spec.Key])
	}

	fmt.Fprintf(&b, "    %s", o.condition)

	return b.String()
}
