// Package changelog appends settings mutations to an NDJSON file, one
// record per settings.Change. It is optional: a nil *Logger ignores writes.
package changelog
