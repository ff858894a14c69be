package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds client settings shared by the fwpack commands.
type Config struct {
	// ServerURL is the base URL of the update-management service.
	ServerURL string `mapstructure:"server_url" yaml:"server_url" validate:"required,url"`
	// AccessID identifies the API credential pair used for signing.
	AccessID string `mapstructure:"access_id" yaml:"access_id,omitempty"`
	// AccessSecret is the HMAC secret paired with AccessID.
	AccessSecret string `mapstructure:"access_secret" yaml:"access_secret,omitempty"`
	// ChunkSize is the upload chunk size in bytes.
	ChunkSize int64 `mapstructure:"chunk_size" yaml:"chunk_size" validate:"gt=0"`
	// PackagePath is the local package template consumed by the commands.
	PackagePath string `mapstructure:"package_path" yaml:"package_path" validate:"required"`
}

const (
	// DefaultServerURL is used when no server is configured.
	DefaultServerURL = "http://localhost:8080"

	// DefaultChunkSize is the upload chunk size in bytes.
	DefaultChunkSize int64 = 131072

	// DefaultPackageFilename is the local package template filename.
	DefaultPackageFilename = ".fwpack"

	// DefaultConfigFilename is the settings file looked up in $HOME.
	DefaultConfigFilename = ".fwpack-settings.yaml"

	// DefaultFilePermissions restricts settings files to the owner,
	// they carry API credentials.
	DefaultFilePermissions os.FileMode = 0o600

	// envPrefix is the prefix of environment overrides (FWPACK_SERVER_URL, ...).
	envPrefix = "FWPACK"
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// DefaultPath returns the settings file location: $FWPACK_GLOBAL_CONFIG
// when set, otherwise the file in the user home directory.
func DefaultPath() string {
	if path := os.Getenv(envPrefix + "_GLOBAL_CONFIG"); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigFilename
	}

	return filepath.Join(home, DefaultConfigFilename)
}

// Load reads settings from the provided path (or the default location
// when empty), applies FWPACK_* environment overrides and validates the
// result. A missing settings file is not an error: defaults plus the
// environment still form a usable configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("package_path", DefaultPackageFilename)
	// Credentials default to empty so their env overrides are visible
	// to Unmarshal; viper only consults the environment for known keys.
	v.SetDefault("access_id", "")
	v.SetDefault("access_secret", "")
	v.SetConfigFile(filepath.Clean(path))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	// Environment overrides arrive as strings; decode them weakly so
	// FWPACK_CHUNK_SIZE=1024 lands in the int64 field.
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path (or the default location
// when empty) with owner-only permissions.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultPath()
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings for required fields and formats.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	return nil
}
