package settingsfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"

	"app-settings/internal/settings"
)

const (
	markerKey   = "is_app_settings_dict"
	dataKey     = "data"
	defaultsKey = "default_settings"
)

var (
	ErrInvalidFallback     = errors.New("invalid fallback option")
	ErrNoPrompter          = errors.New("no prompt function configured")
	ErrNotSettingsDocument = errors.New("not a settings document")
)

// Fallback selects what Load does when the file cannot be used.
type Fallback string

const (
	FallbackDefaults Fallback = "default settings"
	FallbackPrompt   Fallback = "prompt user"
)

type LoadOptions struct {
	// Fallback defaults to FallbackDefaults.
	Fallback Fallback

	// Prompt fills in the store interactively. Required for FallbackPrompt.
	Prompt func(*settings.Store) error

	// KeepExisting leaves already-set values alone; by default values from
	// the file replace them.
	KeepExisting bool
}

// ParseFallback maps the textual option (as used in config files) to a
// Fallback. Both the long form and the short forms "defaults"/"prompt" are
// accepted.
func ParseFallback(s string) (Fallback, error) {
	switch s {
	case "", "defaults", string(FallbackDefaults):
		return FallbackDefaults, nil
	case "prompt", string(FallbackPrompt):
		return FallbackPrompt, nil
	default:
		return "", fmt.Errorf("%w %q: must be %q or %q", ErrInvalidFallback, s, FallbackDefaults, FallbackPrompt)
	}
}

// Save writes the store's values and defaults to path.
func Save(path string, s *settings.Store) error {
	c, err := codecFor(path)
	if err != nil {
		return err
	}
	b, err := c.marshal(Dump(s))
	if err != nil {
		return fmt.Errorf("encode settings %s: %w", path, err)
	}
	if err := writeFileAtomic(path, b, 0o600); err != nil {
		return fmt.Errorf("save settings %s: %w", path, err)
	}
	return nil
}

// Dump converts the store to the document written by Save.
func Dump(s *settings.Store) map[string]any {
	return map[string]any{
		markerKey:   true,
		dataKey:     dumpMap(s.Values()),
		defaultsKey: dumpMap(s.Defaults()),
	}
}

func dumpMap(m map[string]any) map[string]any {
	for k, v := range m {
		if nested, ok := v.(*settings.Store); ok {
			m[k] = Dump(nested)
		}
	}
	return m
}

// Load reads path into s. Entries for keys the store does not know are
// ignored. Every level of the document is validated before anything is
// committed, so a value that fails its validator, in s or in a nested store,
// aborts the load without applying any of them.
func Load(path string, s *settings.Store, opts LoadOptions) error {
	fb := opts.Fallback
	if fb == "" {
		fb = FallbackDefaults
	}
	if fb != FallbackDefaults && fb != FallbackPrompt {
		return fmt.Errorf("%w %q", ErrInvalidFallback, fb)
	}

	c, err := codecFor(path)
	if err != nil {
		return err
	}

	doc, err := read(path, c)
	if err != nil {
		if !errors.Is(err, errUnusable) {
			return err
		}
		slog.Warn("unable to load settings, using fallback", "path", path, "fallback", string(fb), "err", err)
		return fallback(s, fb, opts.Prompt)
	}
	if err := apply(s, doc, opts.KeepExisting); err != nil {
		return fmt.Errorf("load settings %s: %w", path, err)
	}
	return nil
}

var errUnusable = errors.New("settings file unusable")

func read(path string, c codec) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %v", errUnusable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, fmt.Errorf("%w: empty file", errUnusable)
	}
	doc, err := c.unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnusable, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: empty document", errUnusable)
	}
	return doc, nil
}

func fallback(s *settings.Store, fb Fallback, prompt func(*settings.Store) error) error {
	switch fb {
	case FallbackPrompt:
		if prompt == nil {
			return ErrNoPrompter
		}
		return prompt(s)
	default:
		for k := range s.Defaults() {
			if s.IsSet(k) {
				continue
			}
			if err := s.Reset(k); err != nil {
				return err
			}
		}
		return nil
	}
}

func envelope(v any) (data, defaults map[string]any, ok bool) {
	doc, isMap := v.(map[string]any)
	if !isMap {
		return nil, nil, false
	}
	if _, marked := doc[markerKey]; !marked {
		return nil, nil, false
	}
	data, ok1 := doc[dataKey].(map[string]any)
	defaults, ok2 := doc[defaultsKey].(map[string]any)
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	return data, defaults, true
}

func apply(s *settings.Store, doc map[string]any, keepExisting bool) error {
	commit, err := prepare(s, doc, keepExisting)
	if err != nil {
		return err
	}
	return commit()
}

// prepare validates doc against s and every nested store it targets without
// changing any of them. The returned commit applies the staged values.
func prepare(s *settings.Store, doc map[string]any, keepExisting bool) (func() error, error) {
	data, defaults, ok := envelope(doc)
	if !ok {
		return nil, ErrNotSettingsDocument
	}

	staged := make(map[string]any, len(data))
	var nested []func() error
	for _, k := range slices.Sorted(maps.Keys(data)) {
		v := data[k]
		if !s.Contains(k) {
			continue
		}
		if keepExisting && s.IsSet(k) {
			continue
		}
		if nd, ndef, isEnvelope := envelope(v); isEnvelope {
			if sub, isStore := current(s, k).(*settings.Store); isStore {
				c, err := prepare(sub, v.(map[string]any), keepExisting)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", k, err)
				}
				nested = append(nested, c)
				continue
			}
			v = settings.New(ndef, nd)
		}
		staged[k] = v
	}
	if err := s.Validate(staged); err != nil {
		return nil, err
	}

	return func() error {
		if err := s.Update(staged); err != nil {
			return err
		}
		for _, c := range nested {
			if err := c(); err != nil {
				return err
			}
		}
		// Defaults recorded in the file only fill gaps; the code's own
		// defaults win.
		for k, v := range defaults {
			if _, has := s.Default(k); !has {
				s.SetDefault(k, v)
			}
		}
		return nil
	}, nil
}

// current reads key's value or default without running factories.
func current(s *settings.Store, key string) any {
	if v, ok := s.Values()[key]; ok {
		return v
	}
	v, _ := s.Default(key)
	return v
}
