// Package config loads and validates runtime configuration for the
// appsettings tool itself (where the settings file lives, how to fall back,
// logging).
//
// Configuration is read from `config/config.yaml` and can be overridden via
// APPSET_* environment variables (see `internal/config/config.go` for keys).
package config
