// Package settings implements the in-memory settings store.
//
// A Store maps setting names to values with default fallback, per-key
// default factories and per-key validators checked on write. The store is
// not safe for concurrent use; callers that share one across goroutines
// must serialize access themselves.
package settings
