package settings

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Decode copies the effective settings into out, which must be a pointer to
// a struct or map. Struct fields are matched by their `setting` tag, falling
// back to a case-insensitive field name match. Values are converted weakly,
// so "80" decodes into an int field and "5s" into a time.Duration.
func (s *Store) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "setting",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("create settings decoder: %w", err)
	}
	if err := dec.Decode(s.effective()); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}

// effective flattens the store into a plain map, expanding nested stores.
func (s *Store) effective() map[string]any {
	out := make(map[string]any)
	for k, v := range s.Items() {
		if nested, ok := v.(*Store); ok {
			out[k] = nested.effective()
			continue
		}
		out[k] = v
	}
	return out
}
