package object

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownMode is returned when an object names an installation mode
// the agent does not implement.
var ErrUnknownMode = errors.New("unknown installation mode")

// OptionSpec declares one option accepted by an installation mode.
// Options without a default are required.
type OptionSpec struct {
	// Key is the option name as it appears in templates and metadata.
	Key string
	// Default is filled in when the option is absent; nil means the
	// option is required.
	Default any
	// Required marks options the user must always provide.
	Required bool
}

// Mode describes one installation strategy the update agent supports.
type Mode struct {
	// Name identifies the mode in templates and metadata.
	Name string
	// SupportsCondition is false for modes whose targets cannot be
	// inspected for a version, such as UBI volumes.
	SupportsCondition bool
	// Options lists the accepted options in rendering order.
	Options []OptionSpec
}

// modes is the registry of supported installation strategies.
//
//nolint:gochecknoglobals // Static registry.
var modes = map[string]*Mode{
	"raw": {
		Name:              "raw",
		SupportsCondition: true,
		Options: []OptionSpec{
			{Key: "target-type", Default: "device"},
			{Key: "target", Required: true},
			{Key: "chunk-size", Default: int64(131072)},
			{Key: "count", Default: int64(-1)},
			{Key: "seek", Default: int64(0)},
			{Key: "skip", Default: int64(0)},
			{Key: "truncate", Default: false},
		},
	},
	"copy": {
		Name:              "copy",
		SupportsCondition: true,
		Options: []OptionSpec{
			{Key: "target-type", Default: "device"},
			{Key: "target", Required: true},
			{Key: "target-path", Required: true},
			{Key: "filesystem", Required: true},
			{Key: "mount-options", Default: ""},
			{Key: "format?", Default: false},
			{Key: "format-options", Default: ""},
		},
	},
	"flash": {
		Name:              "flash",
		SupportsCondition: true,
		Options: []OptionSpec{
			{Key: "target-type", Default: "device"},
			{Key: "target", Required: true},
		},
	},
	"ubifs": {
		Name:              "ubifs",
		SupportsCondition: false,
		Options: []OptionSpec{
			{Key: "target-type", Default: "ubivolume"},
			{Key: "target", Required: true},
		},
	},
}

// ModeByName looks up a registered installation mode.
func ModeByName(name string) (*Mode, error) {
	mode, ok := modes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}

	return mode, nil
}

// ModeNames lists the registered mode names sorted alphabetically, for
// help texts and error messages.
func ModeNames() []string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// spec finds the declaration for key, if the mode accepts it.
func (m *Mode) spec(key string) (OptionSpec, bool) {
	for _, s := range m.Options {
		if s.Key == key {
			return s, true
		}
	}

	return OptionSpec{}, false
}
