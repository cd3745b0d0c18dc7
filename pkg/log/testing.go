package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TestLogger records every entry a kernel emits as one JSON line, so tests
// can assert on fit and transform reports without a real backend. Loggers
// derived with With share the parent's record.
type TestLogger struct {
	rec    *record
	level  Level
	fields []any
}

type record struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewTestLogger returns a logger that keeps entries at or above level, and
// the buffer holding them as JSON lines.
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	rec := &record{}
	return &TestLogger{rec: rec, level: level}, &rec.buf
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.log(LevelDebug, "DEBUG", msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.log(LevelInfo, "INFO", msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.log(LevelWarn, "WARN", msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.log(LevelError, "ERROR", msg, fields) }

// With implements Logger.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make([]any, 0, len(t.fields)+len(fields))
	merged = append(append(merged, t.fields...), fields...)
	return &TestLogger{rec: t.rec, level: t.level, fields: merged}
}

// Enabled implements Logger.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool { return t.level <= level }

func (t *TestLogger) log(level Level, name, msg string, fields []any) {
	if level < t.level {
		return
	}
	entry := map[string]any{"level": name, "message": msg}
	put := func(kv []any) {
		for i := 0; i+1 < len(kv); i += 2 {
			v := kv[i+1]
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			entry[fmt.Sprint(kv[i])] = v
		}
	}
	put(t.fields)
	put(fields)

	line, _ := json.Marshal(entry)
	t.rec.mu.Lock()
	t.rec.buf.Write(line)
	t.rec.buf.WriteByte('\n')
	t.rec.mu.Unlock()
}

// GetLogEntries decodes the recorded lines. Numbers decode as float64.
func (t *TestLogger) GetLogEntries() ([]map[string]any, error) {
	t.rec.mu.Lock()
	raw := t.rec.buf.String()
	t.rec.mu.Unlock()

	var entries []map[string]any
	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any recorded line contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	return strings.Contains(t.rec.buf.String(), message)
}

// ContainsField reports whether any entry has key set to value, compared
// after JSON decoding.
func (t *TestLogger) ContainsField(key string, value any) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}
