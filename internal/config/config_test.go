package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoadDefaults checks that a missing settings file still yields a
// valid configuration with defaults applied.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultServerURL, cfg.ServerURL)
	require.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	require.Equal(t, DefaultPackageFilename, cfg.PackagePath)
}

// TestLoadEnvOverride checks that FWPACK_* variables override file and
// default values.
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FWPACK_SERVER_URL", "https://updates.example.com")
	t.Setenv("FWPACK_CHUNK_SIZE", "1024")
	t.Setenv("FWPACK_ACCESS_ID", "key-id")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "https://updates.example.com", cfg.ServerURL)
	require.Equal(t, int64(1024), cfg.ChunkSize)
	require.Equal(t, "key-id", cfg.AccessID)
}

// TestSaveLoadRoundtrip ensures settings written to disk load back with
// the same values.
func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := &Config{
		ServerURL:    "https://updates.example.com",
		AccessID:     "key-id",
		AccessSecret: "key-secret",
		ChunkSize:    4096,
		PackagePath:  ".fwpack",
	}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

// TestValidateRejectsBadValues checks required/format validations.
func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Not a URL.
	require.Error(t, Validate(&Config{
		ServerURL:   "not-a-url",
		ChunkSize:   1,
		PackagePath: ".fwpack",
	}))

	// Non-positive chunk size.
	require.Error(t, Validate(&Config{
		ServerURL:   "https://updates.example.com",
		ChunkSize:   0,
		PackagePath: ".fwpack",
	}))
}
