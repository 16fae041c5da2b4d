package validate

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"app-settings/internal/settings"
)

var (
	engineOnce sync.Once
	engine     *validator.Validate
)

func rules() *validator.Validate {
	engineOnce.Do(func() {
		engine = validator.New(validator.WithRequiredStructEnabled())
	})
	return engine
}

// Predicate adapts a boolean check. The value is stored unchanged.
func Predicate(ok func(any) bool) settings.Validator {
	return func(v any) (any, error) {
		if !ok(v) {
			return nil, errors.New("predicate rejected value")
		}
		return v, nil
	}
}

// Tag checks the value against a validator rule string. An unknown rule is
// reported as an error rather than a panic.
func Tag(tag string) settings.Validator {
	return func(v any) (out any, err error) {
		defer func() {
			if r := recover(); r != nil {
				out, err = nil, fmt.Errorf("bad rule %q: %v", tag, r)
			}
		}()
		if err := rules().Var(v, tag); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return nil, fmt.Errorf("failed %q rule", verrs[0].Tag())
			}
			return nil, err
		}
		return v, nil
	}
}

// IntRange coerces to int and checks lo <= v <= hi.
func IntRange(lo, hi int) settings.Validator {
	return func(v any) (any, error) {
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil, err
		}
		if n < lo || n > hi {
			return nil, fmt.Errorf("%d out of range [%d,%d]", n, lo, hi)
		}
		return n, nil
	}
}

// FloatRange coerces to float64 and checks lo <= v <= hi.
func FloatRange(lo, hi float64) settings.Validator {
	return func(v any) (any, error) {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, err
		}
		if f < lo || f > hi {
			return nil, fmt.Errorf("%g out of range [%g,%g]", f, lo, hi)
		}
		return f, nil
	}
}

// OneOf coerces to string and requires an exact match with one of choices.
func OneOf(choices ...string) settings.Validator {
	return func(v any) (any, error) {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(choices, s) {
			return nil, fmt.Errorf("%q is not one of [%s]", s, strings.Join(choices, " "))
		}
		return s, nil
	}
}

// Chain runs validators in order, feeding each the previous output.
func Chain(vs ...settings.Validator) settings.Validator {
	return func(v any) (any, error) {
		var err error
		for _, fn := range vs {
			if fn == nil {
				continue
			}
			if v, err = fn(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

func ToInt() settings.Validator {
	return func(v any) (any, error) { return cast.ToIntE(v) }
}

func ToFloat() settings.Validator {
	return func(v any) (any, error) { return cast.ToFloat64E(v) }
}

func ToBool() settings.Validator {
	return func(v any) (any, error) { return cast.ToBoolE(v) }
}

func ToString() settings.Validator {
	return func(v any) (any, error) { return cast.ToStringE(v) }
}

// ToDuration accepts durations, duration strings ("5s") and integer
// nanoseconds.
func ToDuration() settings.Validator {
	return func(v any) (any, error) { return cast.ToDurationE(v) }
}
