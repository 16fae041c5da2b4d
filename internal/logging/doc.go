// Package logging sets up the process logger: log/slog text output tagged
// with a per-run id.
package logging
