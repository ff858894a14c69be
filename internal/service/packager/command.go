package packager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fwpack/fwpack/internal/config"
	"github.com/fwpack/fwpack/internal/core/object"
	"github.com/fwpack/fwpack/internal/core/pack"
	"github.com/fwpack/fwpack/internal/logger"
)

// Options contains inputs shared by the package editing commands.
type Options struct {
	// PackagePath is the package template location. Empty means the
	// default filename in the working directory.
	PackagePath string
}

// ErrMalformedOption is returned for command-line object options that
// are not key=value pairs.
var ErrMalformedOption = errors.New("object options must be key=value pairs")

// path resolves the template location.
func (o *Options) path() string {
	if o.PackagePath != "" {
		return o.PackagePath
	}

	return config.DefaultPackageFilename
}

// NewPackage starts a fresh package bound to a product, replacing any
// existing template at the target path.
func NewPackage(ctx context.Context, opts *Options, product string) error {
	ctx = logger.WithName(ctx, "packager")

	pkg := pack.New(product)
	if err := pkg.Save(opts.path()); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Started package", "product", product, "path", opts.path())

	return nil
}

// AddObject validates and appends an object to the package. Option
// values arrive as command-line strings; the object model coerces them.
func AddObject(ctx context.Context, opts *Options, filename, mode string, rawOptions []string) error {
	ctx = logger.WithName(ctx, "packager")

	pkg, err := pack.Load(opts.path())
	if err != nil {
		return err
	}

	options, err := ParseOptionPairs(rawOptions)
	if err != nil {
		return err
	}

	options["filename"] = filename
	options["mode"] = mode

	obj, err := object.NewObject(options)
	if err != nil {
		return err
	}

	if err := pkg.AddObject(obj); err != nil {
		return err
	}

	if err := pkg.Save(opts.path()); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Added object", "filename", filename, "mode", mode)

	return nil
}

// RemoveObject drops an object from the package.
func RemoveObject(ctx context.Context, opts *Options, filename string) error {
	ctx = logger.WithName(ctx, "packager")

	pkg, err := pack.Load(opts.path())
	if err != nil {
		return err
	}

	if err := pkg.RemoveObject(filename); err != nil {
		return err
	}

	if err := pkg.Save(opts.path()); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Removed object", "filename", filename)

	return nil
}

// Show renders the package listing.
func Show(_ context.Context, opts *Options) (string, error) {
	pkg, err := pack.Load(opts.path())
	if err != nil {
		return "", err
	}

	return pkg.String(), nil
}

// ParseOptionPairs turns key=value arguments into an option mapping.
func ParseOptionPairs(pairs []string) (map[string]any, error) {
	options := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedOption, pair)
		}

		options[key] = value
	}

	return options, nil
}
