package settings

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func volumeInRange(v any) (any, error) {
	n, ok := v.(int)
	if !ok || n < 0 || n > 100 {
		return nil, errors.New("volume must be an int in [0,100]")
	}
	return n, nil
}

func TestStore_DefaultsSetDelete(t *testing.T) {
	s := New(map[string]any{"theme": "light", "volume": 50}, nil)

	if err := s.Set("volume", 80); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := s.Get("volume"); v != 80 {
		t.Fatalf("volume=%v", v)
	}
	if err := s.Delete("volume"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v, _ := s.Get("volume"); v != 50 {
		t.Fatalf("volume after delete=%v", v)
	}
	if v, _ := s.Get("theme"); v != "light" {
		t.Fatalf("theme=%v", v)
	}

	_, err := s.Get("missing_key")
	var nf *KeyNotFoundError
	if !errors.As(err, &nf) || nf.Key != "missing_key" {
		t.Fatalf("err=%v", err)
	}
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("errors.Is ErrKeyNotFound=false for %v", err)
	}
}

func TestStore_ValidatorRejectsAndLeavesState(t *testing.T) {
	s := New(map[string]any{"theme": "light", "volume": 50}, nil)
	s.RegisterValidator("volume", volumeInRange)

	err := s.Set("volume", 150)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err=%v", err)
	}
	if ve.Key != "volume" || ve.Value != 150 {
		t.Fatalf("key=%q value=%v", ve.Key, ve.Value)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("errors.Is ErrValidation=false")
	}
	if v, _ := s.Get("volume"); v != 50 {
		t.Fatalf("volume=%v", v)
	}
	if s.IsSet("volume") {
		t.Fatalf("rejected write must not store a value")
	}

	if err := s.Set("volume", 30); err != nil {
		t.Fatalf("Set(30): %v", err)
	}
	if err := s.Set("volume", -1); err == nil {
		t.Fatalf("expected rejection")
	}
	if v, _ := s.Get("volume"); v != 30 {
		t.Fatalf("volume=%v", v)
	}
}

func TestStore_ValidatorTransforms(t *testing.T) {
	s := New(map[string]any{"name": ""}, nil)
	s.RegisterValidator("name", func(v any) (any, error) {
		str, ok := v.(string)
		if !ok {
			return nil, errors.New("not a string")
		}
		return str + "!", nil
	})
	if err := s.Set("name", "hi"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := s.Get("name"); v != "hi!" {
		t.Fatalf("name=%v", v)
	}
}

func TestStore_RegisterValidatorIsNotRetroactive(t *testing.T) {
	s := New(nil, map[string]any{"volume": 500})
	s.RegisterValidator("volume", volumeInRange)
	if v, _ := s.Get("volume"); v != 500 {
		t.Fatalf("volume=%v", v)
	}
	s.RegisterValidator("volume", nil)
	if err := s.Set("volume", 900); err != nil {
		t.Fatalf("validator should be removed: %v", err)
	}
}

func TestStore_OverridesAreNotDefaults(t *testing.T) {
	s := New(map[string]any{"volume": 50}, map[string]any{"volume": 70, "extra": "x"})
	if v, _ := s.Get("volume"); v != 70 {
		t.Fatalf("volume=%v", v)
	}
	if err := s.Delete("extra"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("extra"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("extra err=%v", err)
	}
	if err := s.Delete("volume"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v, _ := s.Get("volume"); v != 50 {
		t.Fatalf("volume=%v", v)
	}
}

func TestStore_DeleteUnsetAndUnknown(t *testing.T) {
	s := New(map[string]any{"theme": "light"}, nil)
	if err := s.Delete("theme"); err != nil {
		t.Fatalf("delete of defaulted key should be a no-op: %v", err)
	}
	if err := s.Delete("nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestStore_UpdateIsAllOrNothing(t *testing.T) {
	s := New(map[string]any{"theme": "light", "volume": 50}, nil)
	s.RegisterValidator("volume", volumeInRange)

	err := s.Update(map[string]any{"theme": "dark", "volume": 101})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Key != "volume" {
		t.Fatalf("err=%v", err)
	}
	if v, _ := s.Get("theme"); v != "light" {
		t.Fatalf("theme=%v (batch must not partially commit)", v)
	}

	if err := s.Update(map[string]any{"theme": "dark", "volume": 10}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := map[string]any{"theme": "dark", "volume": 10}
	if diff := cmp.Diff(want, s.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Factories(t *testing.T) {
	calls := 0
	s := New(nil, map[string]any{"key1": "hello", "key2": "world"}, WithFactories(map[string]Factory{
		"key1": func() any { calls++; return "value1" },
	}))
	if v, _ := s.Get("key1"); v != "hello" {
		t.Fatalf("key1=%v", v)
	}
	_ = s.Delete("key1")
	_ = s.Delete("key2")
	if s.IsSet("key1") || s.IsSet("key2") {
		t.Fatalf("keys still set after delete")
	}
	if v, _ := s.Get("key1"); v != "value1" {
		t.Fatalf("key1=%v", v)
	}
	if _, err := s.Get("key1"); err != nil || calls != 1 {
		t.Fatalf("factory result should be kept, calls=%d err=%v", calls, err)
	}
	if _, err := s.Get("key2"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("key2 err=%v", err)
	}
}

func TestStore_ResetAndResetAll(t *testing.T) {
	s := New(
		map[string]any{"key1": "hello", "key2": "world", "key3": []string{}},
		nil,
		WithFactories(map[string]Factory{"key3": func() any { return "value3" }}),
	)
	if v, _ := s.Get("key3"); !cmp.Equal(v, []string{}) {
		t.Fatalf("key3=%v", v)
	}
	if err := s.Set("key3", "something"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("key1", "changed"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Reset("key1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if v, _ := s.Get("key1"); v != "hello" {
		t.Fatalf("key1=%v", v)
	}
	s.ResetAll()
	if v, _ := s.Get("key3"); !cmp.Equal(v, []string{}) {
		t.Fatalf("key3 after ResetAll=%v", v)
	}
	if err := s.Reset("nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestStore_Prompt(t *testing.T) {
	s := New(nil, map[string]any{"key1": "hello"}, WithFactories(map[string]Factory{
		"key1": func() any { return "a" },
	}))
	if err := s.Prompt("key1"); err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if v, _ := s.Get("key1"); v != "a" {
		t.Fatalf("key1=%v", v)
	}
	if err := s.Prompt("key2"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestStore_ClearFallsBackToDefaults(t *testing.T) {
	s := New(map[string]any{"key1": []string{}}, map[string]any{"key1": "hello"})
	s.Clear()
	if s.IsSet("key1") {
		t.Fatalf("key1 still set")
	}
	if v, _ := s.Get("key1"); !cmp.Equal(v, []string{}) {
		t.Fatalf("key1=%v", v)
	}
}

func TestStore_PreventNewSettings(t *testing.T) {
	s := New(map[string]any{"theme": "light"}, nil, WithPreventNewSettings())
	if err := s.Set("theme", "dark"); err != nil {
		t.Fatalf("Set known: %v", err)
	}
	err := s.Set("font", "mono")
	if !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("err=%v", err)
	}
	if s.Contains("font") {
		t.Fatalf("rejected key was added")
	}
	if err := s.Update(map[string]any{"theme": "x", "font": "y"}); !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("Update err=%v", err)
	}
	if v, _ := s.Get("theme"); v != "dark" {
		t.Fatalf("theme=%v", v)
	}

	s.SetDefault("font", "sans")
	if err := s.Set("font", "mono"); err != nil {
		t.Fatalf("Set after SetDefault: %v", err)
	}
}

func TestStore_Validate(t *testing.T) {
	s := New(map[string]any{"volume": 50}, nil, WithValidators(map[string]Validator{"volume": volumeInRange}))
	if err := s.Validate(map[string]any{"volume": 80}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := s.Validate(map[string]any{"volume": 150}); !errors.Is(err, ErrValidation) {
		t.Fatalf("err=%v", err)
	}
	if s.IsSet("volume") {
		t.Fatalf("Validate stored a value")
	}
}

func TestStore_FactoryResultIsReported(t *testing.T) {
	s := New(nil, nil, WithFactories(map[string]Factory{"token": func() any { return "abc" }}))
	var got []Change
	s.OnChange(func(c Change) { got = append(got, c) })

	_, _ = s.Get("token")
	_, _ = s.Get("token")
	for range s.Items() {
	}

	want := []Change{{Op: OpPrompt, Key: "token", New: "abc"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("changes (-want +got):\n%s", diff)
	}
}

func TestStore_KeysItemsContainsLen(t *testing.T) {
	s := New(
		map[string]any{"b": 2, "a": 1},
		map[string]any{"c": 3, "a": 10},
		WithFactories(map[string]Factory{"d": func() any { return 4 }}),
	)
	keys := slices.Collect(s.Keys())
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, keys); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
	// Restartable.
	if again := slices.Collect(s.Keys()); !cmp.Equal(keys, again) {
		t.Fatalf("second pass=%v", again)
	}

	got := map[string]any{}
	for k, v := range s.Items() {
		got[k] = v
	}
	want := map[string]any{"a": 10, "b": 2, "c": 3, "d": 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("items (-want +got):\n%s", diff)
	}
	if s.IsSet("d") {
		t.Fatalf("Items must not cache factory results")
	}

	if s.Len() != 4 {
		t.Fatalf("Len=%d", s.Len())
	}
	if !s.Contains("d") || s.Contains("e") {
		t.Fatalf("Contains mismatch")
	}

	n := 0
	for range s.Keys() {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("early break n=%d", n)
	}
}

func TestStore_OnChange(t *testing.T) {
	s := New(map[string]any{"volume": 50}, nil)
	var got []Change
	s.OnChange(func(c Change) { got = append(got, c) })

	_ = s.Set("volume", 80)
	_ = s.Set("volume", 500) // no validator, accepted
	_ = s.Delete("volume")
	_ = s.Delete("volume") // no-op, not reported
	_ = s.Reset("volume")
	s.Clear()

	want := []Change{
		{Op: OpSet, Key: "volume", Old: nil, New: 80},
		{Op: OpSet, Key: "volume", Old: 80, New: 500},
		{Op: OpDelete, Key: "volume", Old: 500},
		{Op: OpReset, Key: "volume", New: 50},
		{Op: OpClear},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("changes (-want +got):\n%s", diff)
	}
}

func TestStore_Decode(t *testing.T) {
	type ui struct {
		Scale float64 `setting:"scale"`
	}
	type cfg struct {
		Theme    string        `setting:"theme"`
		Volume   int           `setting:"volume"`
		Autosave bool          `setting:"autosave"`
		Interval time.Duration `setting:"interval"`
		UI       ui            `setting:"ui"`
	}
	nested := New(map[string]any{"scale": 1.5}, nil)
	s := New(map[string]any{
		"theme":    "light",
		"volume":   "80",
		"autosave": "true",
		"interval": "5s",
		"ui":       nested,
	}, nil)

	var c cfg
	if err := s.Decode(&c); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := cfg{Theme: "light", Volume: 80, Autosave: true, Interval: 5 * time.Second, UI: ui{Scale: 1.5}}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("decoded (-want +got):\n%s", diff)
	}
}
