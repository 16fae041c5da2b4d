package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"app-settings/internal/logging"
	"app-settings/internal/settingsfile"
)

const (
	defaultConfigName        = "config"
	envPrefix                = "APPSET"
	defaultSettingsEnvPrefix = "APP"
)

var envPrefixRE = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

type Config struct {
	// SettingsFile is where the managed settings are loaded from and saved to.
	SettingsFile string
	Fallback     settingsfile.Fallback

	// SettingsEnvPrefix selects the env vars that override individual settings
	// (PREFIX_<KEY>, APP_<KEY> unless configured). APPSET_* configures this
	// tool itself.
	SettingsEnvPrefix string

	LogLevel string

	// ChangesLogPath enables NDJSON change logging when set. Leave empty to disable.
	ChangesLogPath string
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName(defaultConfigName)
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath("config")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("settings.file", "settings.json")
	v.SetDefault("settings.fallback", string(settingsfile.FallbackDefaults))
	v.SetDefault("settings.env_prefix", defaultSettingsEnvPrefix)
	v.SetDefault("log.level", "info")
	v.SetDefault("telemetry.changes_ndjson_path", "")

	// Config file is optional; env-only is fine.
	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		SettingsFile:      strings.TrimSpace(v.GetString("settings.file")),
		SettingsEnvPrefix: strings.TrimSpace(v.GetString("settings.env_prefix")),
		LogLevel:          strings.TrimSpace(v.GetString("log.level")),
		ChangesLogPath:    strings.TrimSpace(v.GetString("telemetry.changes_ndjson_path")),
	}

	if cfg.SettingsFile == "" {
		return Config{}, fmt.Errorf("settings.file must not be empty")
	}
	switch strings.ToLower(filepath.Ext(cfg.SettingsFile)) {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		return Config{}, fmt.Errorf("invalid settings.file %q: extension must be .json, .yaml, .yml or .toml", cfg.SettingsFile)
	}
	fb, err := settingsfile.ParseFallback(strings.TrimSpace(v.GetString("settings.fallback")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid settings.fallback: %w", err)
	}
	cfg.Fallback = fb
	if !envPrefixRE.MatchString(cfg.SettingsEnvPrefix) {
		return Config{}, fmt.Errorf("invalid settings.env_prefix %q", cfg.SettingsEnvPrefix)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("invalid log.level: %w", err)
	}

	if cfg.ChangesLogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.ChangesLogPath), 0o755); err != nil {
			return Config{}, fmt.Errorf("create telemetry dir: %w", err)
		}
	}
	return cfg, nil
}
