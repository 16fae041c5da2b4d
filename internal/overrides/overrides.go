package overrides

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"app-settings/internal/settings"
)

// FromEnv returns an override for every store key set in the environment as
// PREFIX_KEY (dots and dashes in keys become underscores, case-insensitive).
func FromEnv(prefix string, s *settings.Store) (map[string]any, error) {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	out := map[string]any{}
	for key := range s.Keys() {
		if !v.IsSet(key) {
			continue
		}
		val, err := coerceFor(s, key, v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("env override %s: %w", key, err)
		}
		out[key] = val
	}
	return out, nil
}

// FromPairs parses "key=value" pairs. Later pairs win.
func FromPairs(pairs []string, s *settings.Store) (map[string]any, error) {
	out := map[string]any{}
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q: want key=value", p)
		}
		val, err := coerceFor(s, key, raw)
		if err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
		out[key] = val
	}
	return out, nil
}

func coerceFor(s *settings.Store, key, raw string) (any, error) {
	like, ok := s.Default(key)
	if !ok {
		like = s.Values()[key]
	}
	return Coerce(raw, like)
}

// Coerce converts raw to the dynamic type of like. Unknown or nil types keep
// the raw string.
func Coerce(raw string, like any) (any, error) {
	switch like.(type) {
	case int:
		return cast.ToIntE(raw)
	case int64:
		return cast.ToInt64E(raw)
	case float64:
		return cast.ToFloat64E(raw)
	case float32:
		return cast.ToFloat32E(raw)
	case bool:
		return cast.ToBoolE(raw)
	case time.Duration:
		return cast.ToDurationE(raw)
	case []string:
		if strings.TrimSpace(raw) == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return raw, nil
	}
}
