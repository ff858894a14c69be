package object

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fwpack/fwpack/internal/core/install"
)

// writePayload drops content into a temp file and returns its path.
func writePayload(t *testing.T, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	return path
}

// TestNewObjectRawDefaults pins the raw mode defaults in the template.
func TestNewObjectRawDefaults(t *testing.T) {
	t.Parallel()

	obj, err := NewObject(map[string]any{
		"filename": "vmlinuz",
		"mode":     "raw",
		"target":   "/dev/sda",
	})
	require.NoError(t, err)

	require.Equal(t, map[string]any{
		"filename":    "vmlinuz",
		"mode":        "raw",
		"target-type": "device",
		"target":      "/dev/sda",
		"chunk-size":  int64(131072),
		"count":       int64(-1),
		"seek":        int64(0),
		"skip":        int64(0),
		"truncate":    false,
	}, obj.ToTemplate())
}

// TestNewObjectCoercesValues accepts JSON numbers and command-line
// strings for numeric and boolean options.
func TestNewObjectCoercesValues(t *testing.T) {
	t.Parallel()

	obj, err := NewObject(map[string]any{
		"filename":   "vmlinuz",
		"mode":       "raw",
		"target":     "/dev/sda",
		"chunk-size": float64(1024),
		"seek":       "16",
		"truncate":   "true",
	})
	require.NoError(t, err)

	require.Equal(t, int64(1024), obj.Option("chunk-size"))
	require.Equal(t, int64(16), obj.Option("seek"))
	require.Equal(t, true, obj.Option("truncate"))
}

// TestNewObjectErrors covers the construction failure modes.
func TestNewObjectErrors(t *testing.T) {
	t.Parallel()

	// Missing filename.
	_, err := NewObject(map[string]any{"mode": "raw", "target": "/dev/sda"})
	require.ErrorIs(t, err, ErrInvalidObject)

	// Missing mode.
	_, err = NewObject(map[string]any{"filename": "vmlinuz"})
	require.ErrorIs(t, err, ErrInvalidObject)

	// Unknown mode.
	_, err = NewObject(map[string]any{"filename": "vmlinuz", "mode": "grub"})
	require.ErrorIs(t, err, ErrUnknownMode)

	// Missing required option.
	_, err = NewObject(map[string]any{"filename": "vmlinuz", "mode": "raw"})
	require.ErrorIs(t, err, ErrInvalidObject)

	// Option from another mode.
	_, err = NewObject(map[string]any{
		"filename":    "vmlinuz",
		"mode":        "raw",
		"target":      "/dev/sda",
		"target-path": "/boot",
	})
	require.ErrorIs(t, err, ErrInvalidObject)

	// Ill-typed option.
	_, err = NewObject(map[string]any{
		"filename":   "vmlinuz",
		"mode":       "raw",
		"target":     "/dev/sda",
		"chunk-size": "lots",
	})
	require.ErrorIs(t, err, ErrInvalidObject)
}

// TestUbifsRejectsInstallCondition checks that condition options are
// invalid for modes without condition support.
func TestUbifsRejectsInstallCondition(t *testing.T) {
	t.Parallel()

	_, err := NewObject(map[string]any{
		"filename":           "rootfs.ubifs",
		"mode":               "ubifs",
		"target":             "system0",
		install.ConditionKey: "content-diverges",
	})
	require.ErrorIs(t, err, ErrInvalidObject)
}

// TestUbifsDefaultsToAlways ensures condition-less modes still carry an
// always condition and the ubivolume target type.
func TestUbifsDefaultsToAlways(t *testing.T) {
	t.Parallel()

	obj, err := NewObject(map[string]any{
		"filename": "rootfs.ubifs",
		"mode":     "ubifs",
		"target":   "system0",
	})
	require.NoError(t, err)
	require.Equal(t, install.KindAlways, obj.Condition().Kind())
	require.Equal(t, "ubivolume", obj.Option("target-type"))
}

// TestObjectTemplateWithCondition echoes condition options through the
// template.
func TestObjectTemplateWithCondition(t *testing.T) {
	t.Parallel()

	obj, err := NewObject(map[string]any{
		"filename":             "vmlinuz",
		"mode":                 "flash",
		"target":               "/dev/mtd0",
		install.ConditionKey:   "version-diverges",
		install.PatternTypeKey: "linux-kernel",
	})
	require.NoError(t, err)

	require.Equal(t, map[string]any{
		"filename":             "vmlinuz",
		"mode":                 "flash",
		"target-type":          "device",
		"target":               "/dev/mtd0",
		install.ConditionKey:   "version-diverges",
		install.PatternTypeKey: "linux-kernel",
	}, obj.ToTemplate())
}

// TestObjectMetadata pins the uploaded document for a plain payload.
func TestObjectMetadata(t *testing.T) {
	t.Parallel()

	content := []byte("spam and eggs")
	path := writePayload(t, content)
	digest := sha256.Sum256(content)

	obj, err := NewObject(map[string]any{
		"filename":           path,
		"mode":               "raw",
		"target":             "/dev/sda",
		install.ConditionKey: "content-diverges",
	})
	require.NoError(t, err)

	metadata, err := obj.ToMetadata()
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"filename":             path,
		"mode":                 "raw",
		"target-type":          "device",
		"target":               "/dev/sda",
		"chunk-size":           int64(131072),
		"count":                int64(-1),
		"seek":                 int64(0),
		"skip":                 int64(0),
		"truncate":             false,
		"size":                 int64(len(content)),
		"sha256sum":            hex.EncodeToString(digest[:]),
		"install-if-different": "sha256sum",
	}, metadata)
}

// TestObjectMetadataCompressed adds the compression fragment for a
// gzip payload.
func TestObjectMetadataCompressed(t *testing.T) {
	t.Parallel()

	payload := []byte("uncompressed payload body")
	path := filepath.Join(t.TempDir(), "payload.gz")

	f, err := os.Create(path)
	require.NoError(t, err)

	w := gzip.NewWriter(f)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	obj, err := NewObject(map[string]any{
		"filename": path,
		"mode":     "raw",
		"target":   "/dev/sda",
	})
	require.NoError(t, err)

	metadata, err := obj.ToMetadata()
	require.NoError(t, err)
	require.Equal(t, true, metadata["compressed"])
	require.Equal(t, int64(len(payload)), metadata["required-uncompressed-size"])
}

// TestObjectMetadataMissingFile fails instead of uploading a half-built
// document.
func TestObjectMetadataMissingFile(t *testing.T) {
	t.Parallel()

	obj, err := NewObject(map[string]any{
		"filename": filepath.Join(t.TempDir(), "missing.bin"),
		"mode":     "raw",
		"target":   "/dev/sda",
	})
	require.NoError(t, err)

	_, err = obj.ToMetadata()
	require.Error(t, err)
}

// TestModeNames keeps the registry listing stable for help output.
func TestModeNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"copy", "flash", "raw", "ubifs"}, ModeNames())
}

// TestObjectString checks the show listing entry.
func TestObjectString(t *testing.T) {
	t.Parallel()

	obj, err := NewObject(map[string]any{
		"filename": "vmlinuz",
		"mode":     "flash",
		"target":   "/dev/mtd0",
	})
	require.NoError(t, err)

	require.Equal(t,
		"vmlinuz [mode: flash]\n"+
			"    target-type: device\n"+
			"    target: /dev/mtd0\n"+
			"    install condition: always",
		obj.String())
}
