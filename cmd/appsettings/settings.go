package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"app-settings/internal/overrides"
	"app-settings/internal/settings"
	"app-settings/internal/validate"
)

// newStore returns the demo application's settings with their validators.
func newStore() *settings.Store {
	return settings.New(
		map[string]any{
			"theme":             "light",
			"volume":            50,
			"language":          "en",
			"autosave":          true,
			"autosave_interval": 5 * time.Minute,
		},
		nil,
		settings.WithPreventNewSettings(),
		settings.WithValidators(map[string]settings.Validator{
			"theme":    validate.OneOf("light", "dark"),
			"volume":   validate.IntRange(0, 100),
			"language": validate.Chain(validate.ToString(), validate.Tag("required,len=2,lowercase")),
			"autosave": validate.ToBool(),
			"autosave_interval": validate.Chain(
				validate.ToDuration(),
				validate.Predicate(func(v any) bool { return v.(time.Duration) >= time.Second }),
			),
		}),
	)
}

// promptAll asks for every setting on out and reads answers from in. An
// empty answer keeps the current value.
func promptAll(in io.Reader, out io.Writer) func(*settings.Store) error {
	return func(s *settings.Store) error {
		r := bufio.NewReader(in)
		answers := map[string]any{}
		for k, cur := range s.Items() {
			fmt.Fprintf(out, "%s [%v]: ", k, cur)
			line, err := r.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("read answer for %s: %w", k, err)
			}
			line = strings.TrimSpace(line)
			if line != "" {
				v, cerr := overrides.Coerce(line, cur)
				if cerr != nil {
					return fmt.Errorf("answer for %s: %w", k, cerr)
				}
				answers[k] = v
			}
			if errors.Is(err, io.EOF) {
				break
			}
		}
		return s.Update(answers)
	}
}

func printSettings(w io.Writer, s *settings.Store) {
	for k, v := range s.Items() {
		marker := " "
		if s.IsSet(k) {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s = %v\n", marker, k, v)
	}
}
