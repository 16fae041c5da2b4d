package settings

import (
	"errors"
	"fmt"
)

var (
	ErrKeyNotFound    = errors.New("setting not found")
	ErrValidation     = errors.New("setting rejected by validator")
	ErrUnknownSetting = errors.New("unknown setting")
)

// KeyNotFoundError reports a key with neither a stored value, a default
// nor a default factory.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("setting %q not found", e.Key)
}

func (e *KeyNotFoundError) Is(target error) bool { return target == ErrKeyNotFound }

// ValidationError carries the key and the rejected value.
type ValidationError struct {
	Key   string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid value %v for setting %q", e.Value, e.Key)
	}
	return fmt.Sprintf("invalid value %v for setting %q: %v", e.Value, e.Key, e.Err)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// UnknownSettingError is returned by Set and Update when new settings are
// disallowed and the key has no value, default or factory at the time of
// the call.
type UnknownSettingError struct {
	Key string
}

func (e *UnknownSettingError) Error() string {
	return fmt.Sprintf("%q is not a valid setting (new settings are disabled)", e.Key)
}

func (e *UnknownSettingError) Is(target error) bool { return target == ErrUnknownSetting }
