package packager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fwpack/fwpack/internal/core/pack"
)

// testOptions points the packager at a temp template.
func testOptions(t *testing.T) *Options {
	t.Helper()

	return &Options{PackagePath: filepath.Join(t.TempDir(), ".fwpack")}
}

// TestNewPackage starts an empty package bound to a product.
func TestNewPackage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := testOptions(t)

	require.NoError(t, NewPackage(ctx, opts, "1234"))

	pkg, err := pack.Load(opts.PackagePath)
	require.NoError(t, err)
	require.Equal(t, "1234", pkg.Product())
	require.Empty(t, pkg.Objects())
}

// TestAddObject persists a validated object with string options coerced.
func TestAddObject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := testOptions(t)

	require.NoError(t, NewPackage(ctx, opts, "1234"))
	require.NoError(t, AddObject(ctx, opts, "vmlinuz", "raw",
		[]string{"target=/dev/sda", "chunk-size=1024"}))

	pkg, err := pack.Load(opts.PackagePath)
	require.NoError(t, err)
	require.Len(t, pkg.Objects(), 1)
	require.Equal(t, int64(1024), pkg.Objects()[0].Option("chunk-size"))
}

// TestAddObjectRequiresPackage refuses to edit before fwpack new ran.
func TestAddObjectRequiresPackage(t *testing.T) {
	t.Parallel()

	err := AddObject(context.Background(), testOptions(t), "vmlinuz", "raw",
		[]string{"target=/dev/sda"})
	require.ErrorIs(t, err, pack.ErrInvalidPackageFile)
}

// TestAddObjectInvalidOptionsDoNotPersist keeps the template untouched
// when validation fails.
func TestAddObjectInvalidOptionsDoNotPersist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := testOptions(t)

	require.NoError(t, NewPackage(ctx, opts, "1234"))

	before, err := os.ReadFile(opts.PackagePath)
	require.NoError(t, err)

	require.Error(t, AddObject(ctx, opts, "vmlinuz", "raw", []string{"bogus"}))
	require.Error(t, AddObject(ctx, opts, "vmlinuz", "grub", []string{"target=/dev/sda"}))

	after, err := os.ReadFile(opts.PackagePath)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

// TestRemoveObject drops the object and saves.
func TestRemoveObject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := testOptions(t)

	require.NoError(t, NewPackage(ctx, opts, "1234"))
	require.NoError(t, AddObject(ctx, opts, "vmlinuz", "raw", []string{"target=/dev/sda"}))
	require.NoError(t, RemoveObject(ctx, opts, "vmlinuz"))

	pkg, err := pack.Load(opts.PackagePath)
	require.NoError(t, err)
	require.Empty(t, pkg.Objects())

	require.ErrorIs(t, RemoveObject(ctx, opts, "vmlinuz"), pack.ErrObjectNotFound)
}

// TestShow renders the listing.
func TestShow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := testOptions(t)

	require.NoError(t, NewPackage(ctx, opts, "1234"))
	require.NoError(t, AddObject(ctx, opts, "vmlinuz", "raw", []string{"target=/dev/sda"}))

	listing, err := Show(ctx, opts)
	require.NoError(t, err)
	require.Contains(t, listing, "Product: 1234")
	require.Contains(t, listing, "vmlinuz [mode: raw]")
}

// TestParseOptionPairs covers the key=value splitting rules.
func TestParseOptionPairs(t *testing.T) {
	t.Parallel()

	options, err := ParseOptionPairs([]string{"target=/dev/sda", "seek=16", "format-options="})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"target":         "/dev/sda",
		"seek":           "16",
		"format-options": "",
	}, options)

	_, err = ParseOptionPairs([]string{"no-separator"})
	require.ErrorIs(t, err, ErrMalformedOption)

	_, err = ParseOptionPairs([]string{"=value"})
	require.ErrorIs(t, err, ErrMalformedOption)
}
