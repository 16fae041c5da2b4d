package settings

import (
	"iter"
	"maps"
	"slices"
)

// Validator checks a proposed value before it is committed. A non-nil error
// rejects the value; otherwise the returned value is what gets stored, so a
// validator may also normalize its input.
type Validator func(value any) (any, error)

// Factory produces a default value on demand.
type Factory func() any

// Op names the kind of mutation reported to change observers.
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpReset  Op = "reset"
	OpPrompt Op = "prompt"
	OpClear  Op = "clear"
)

// Change describes one committed mutation. Old is nil when the key had no
// stored value. For OpClear, Key is empty.
type Change struct {
	Op  Op
	Key string
	Old any
	New any
}

type Store struct {
	values     map[string]any
	defaults   map[string]any
	factories  map[string]Factory
	validators map[string]Validator

	preventNew bool
	observers  []func(Change)
}

type Option func(*Store)

// WithFactories registers default factories. A factory runs on the first
// read of a key that has neither a value nor a default; its result is kept.
func WithFactories(f map[string]Factory) Option {
	return func(s *Store) {
		for k, fn := range f {
			s.factories[k] = fn
		}
	}
}

func WithValidators(v map[string]Validator) Option {
	return func(s *Store) {
		for k, fn := range v {
			s.validators[k] = fn
		}
	}
}

// WithPreventNewSettings makes Set reject keys that are unknown to the
// store at the time of the call.
func WithPreventNewSettings() Option {
	return func(s *Store) { s.preventNew = true }
}

// New builds a store from defaults and optional overrides. Overrides are
// committed as values without running validators.
func New(defaults, overrides map[string]any, opts ...Option) *Store {
	s := &Store{
		values:     map[string]any{},
		defaults:   map[string]any{},
		factories:  map[string]Factory{},
		validators: map[string]Validator{},
	}
	for k, v := range defaults {
		s.defaults[k] = v
	}
	for k, v := range overrides {
		s.values[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored value for key, else its default, else the result
// of its factory. A factory result is stored and reported as an OpPrompt
// change.
func (s *Store) Get(key string) (any, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	if v, ok := s.defaults[key]; ok {
		return v, nil
	}
	if f, ok := s.factories[key]; ok {
		v := f()
		s.commit(OpPrompt, key, v)
		return v, nil
	}
	return nil, &KeyNotFoundError{Key: key}
}

// Lookup is the comma-ok form of Get.
func (s *Store) Lookup(key string) (any, bool) {
	v, err := s.Get(key)
	return v, err == nil
}

// Set validates value and stores it. On error the store is unchanged.
func (s *Store) Set(key string, value any) error {
	v, err := s.check(key, value)
	if err != nil {
		return err
	}
	s.commit(OpSet, key, v)
	return nil
}

func (s *Store) check(key string, value any) (any, error) {
	if s.preventNew && !s.known(key) {
		return nil, &UnknownSettingError{Key: key}
	}
	fn := s.validators[key]
	if fn == nil {
		return value, nil
	}
	v, err := fn(value)
	if err != nil {
		return nil, &ValidationError{Key: key, Value: value, Err: err}
	}
	return v, nil
}

func (s *Store) commit(op Op, key string, v any) {
	old := s.values[key]
	s.values[key] = v
	s.notify(Change{Op: op, Key: key, Old: old, New: v})
}

// Update validates every entry and commits them only if all pass. The first
// failure in key order is returned.
func (s *Store) Update(m map[string]any) error {
	staged, err := s.stage(m)
	if err != nil {
		return err
	}
	for _, k := range slices.Sorted(maps.Keys(staged)) {
		s.commit(OpSet, k, staged[k])
	}
	return nil
}

// Validate runs the checks Update would run on m without storing anything.
func (s *Store) Validate(m map[string]any) error {
	_, err := s.stage(m)
	return err
}

func (s *Store) stage(m map[string]any) (map[string]any, error) {
	staged := make(map[string]any, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v, err := s.check(k, m[k])
		if err != nil {
			return nil, err
		}
		staged[k] = v
	}
	return staged, nil
}

// Delete removes the stored value so reads fall back to the default.
// Deleting a key that is known but not set is a no-op; deleting a key the
// store has never heard of returns a KeyNotFoundError.
func (s *Store) Delete(key string) error {
	old, ok := s.values[key]
	if !ok {
		if s.known(key) {
			return nil
		}
		return &KeyNotFoundError{Key: key}
	}
	delete(s.values, key)
	s.notify(Change{Op: OpDelete, Key: key, Old: old})
	return nil
}

// RegisterValidator attaches or replaces the validator for key. The current
// value is not re-checked.
func (s *Store) RegisterValidator(key string, fn Validator) {
	if fn == nil {
		delete(s.validators, key)
		return
	}
	s.validators[key] = fn
}

// Reset stores the default for key as its current value.
func (s *Store) Reset(key string) error {
	d, ok := s.defaults[key]
	if !ok {
		return &KeyNotFoundError{Key: key}
	}
	s.commit(OpReset, key, d)
	return nil
}

func (s *Store) ResetAll() {
	for _, k := range slices.Sorted(maps.Keys(s.defaults)) {
		s.commit(OpReset, k, s.defaults[k])
	}
}

// Prompt runs the factory for key and stores its result, bypassing any
// stored value or default.
func (s *Store) Prompt(key string) error {
	f, ok := s.factories[key]
	if !ok {
		return &KeyNotFoundError{Key: key}
	}
	s.commit(OpPrompt, key, f())
	return nil
}

// Clear drops every stored value. Defaults and factories are kept.
func (s *Store) Clear() {
	if len(s.values) == 0 {
		return
	}
	s.values = map[string]any{}
	s.notify(Change{Op: OpClear})
}

func (s *Store) Default(key string) (any, bool) {
	v, ok := s.defaults[key]
	return v, ok
}

func (s *Store) SetDefault(key string, value any) {
	s.defaults[key] = value
}

// IsSet reports whether key has an explicitly stored value.
func (s *Store) IsSet(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *Store) Contains(key string) bool { return s.known(key) }

func (s *Store) Len() int {
	n := 0
	for range s.Keys() {
		n++
	}
	return n
}

func (s *Store) known(key string) bool {
	if _, ok := s.values[key]; ok {
		return true
	}
	if _, ok := s.defaults[key]; ok {
		return true
	}
	_, ok := s.factories[key]
	return ok
}

// Keys yields the union of value, default and factory keys in sorted order.
// Each call returns a fresh sequence.
func (s *Store) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, k := range s.sortedKeys() {
			if !yield(k) {
				return
			}
		}
	}
}

// Items yields each key with its effective value. Factories are run for
// keys without a value or default, but their results are not stored.
func (s *Store) Items() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range s.sortedKeys() {
			if !yield(k, s.peek(k)) {
				return
			}
		}
	}
}

func (s *Store) peek(key string) any {
	if v, ok := s.values[key]; ok {
		return v
	}
	if v, ok := s.defaults[key]; ok {
		return v
	}
	if f, ok := s.factories[key]; ok {
		return f()
	}
	return nil
}

func (s *Store) sortedKeys() []string {
	seen := make(map[string]struct{}, len(s.values)+len(s.defaults)+len(s.factories))
	for k := range s.values {
		seen[k] = struct{}{}
	}
	for k := range s.defaults {
		seen[k] = struct{}{}
	}
	for k := range s.factories {
		seen[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Values returns a copy of the explicitly stored values.
func (s *Store) Values() map[string]any { return maps.Clone(s.values) }

// Defaults returns a copy of the registered defaults.
func (s *Store) Defaults() map[string]any { return maps.Clone(s.defaults) }

// OnChange registers an observer called after every committed mutation.
func (s *Store) OnChange(fn func(Change)) {
	if fn != nil {
		s.observers = append(s.observers, fn)
	}
}

func (s *Store) notify(c Change) {
	for _, fn := range s.observers {
		fn(c)
	}
}
