package changelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"app-settings/internal/settings"
)

type Record struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"ts"`
	Op        string `json:"op"`
	Key       string `json:"key,omitempty"`
	Old       any    `json:"old,omitempty"`
	New       any    `json:"new,omitempty"`
}

type Logger struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create changelog dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{
		f: f,
		w: bufio.NewWriterSize(f, 64*1024),
	}, nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w != nil {
		_ = l.w.Flush()
		l.w = nil
	}
	if l.f != nil {
		err := l.f.Close()
		l.f = nil
		return err
	}
	return nil
}

// Log appends one line. Records whose values cannot be encoded are written
// with the values replaced by their %v form.
func (l *Logger) Log(rec Record) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return
	}
	line, err := json.Marshal(rec)
	if err != nil {
		rec.Old, rec.New = printable(rec.Old), printable(rec.New)
		if line, err = json.Marshal(rec); err != nil {
			return
		}
	}
	_, _ = l.w.Write(append(line, '\n'))
	_ = l.w.Flush()
}

func printable(v any) any {
	if v == nil {
		return nil
	}
	return fmt.Sprintf("%v", v)
}

// Observer adapts the logger to settings.Store.OnChange.
func (l *Logger) Observer(runID string) func(settings.Change) {
	return func(c settings.Change) {
		l.Log(Record{
			RunID:     runID,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Op:        string(c.Op),
			Key:       c.Key,
			Old:       encodable(c.Old),
			New:       encodable(c.New),
		})
	}
}

// encodable replaces nested stores, which have no exported fields, with
// their effective key/value view.
func encodable(v any) any {
	s, ok := v.(*settings.Store)
	if !ok {
		return v
	}
	m := map[string]any{}
	for k, val := range s.Items() {
		m[k] = encodable(val)
	}
	return m
}
