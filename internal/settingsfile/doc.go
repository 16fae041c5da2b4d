// Package settingsfile saves and loads a settings.Store to a file.
//
// The format is picked from the file extension (.json, .yaml/.yml, .toml).
// Every format carries the same document:
//
//	is_app_settings_dict: true
//	data:             {stored values}
//	default_settings: {defaults}
//
// Nested stores are written as nested documents. When the file is missing,
// empty or unreadable as a settings document, Load falls back to the store's
// defaults or to a caller-supplied prompt.
package settingsfile
