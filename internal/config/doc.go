// Package config loads and persists the fwpack client settings: update
// server URL, API credentials, upload chunk size and the default package
// template path. Settings come from a YAML file overridable through
// FWPACK_* environment variables.
package config
