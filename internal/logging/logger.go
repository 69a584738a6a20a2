// Package logging builds the leveled slog logger used across spinsim and an
// optional JSONL trace of per-point sweep events.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace sits below Debug and enables per-step solver output.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps "warn", "info", "debug" and "trace" (any case) to a level.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// PointLog appends one JSON object per sweep point to dir/points.jsonl.
// It is only opened at debug or trace level; a nil *PointLog is a no-op.
type PointLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenPointLog returns nil at info level or when the file cannot be opened.
func OpenPointLog(dir, level string) *PointLog {
	if ParseLevel(level) > slog.LevelDebug {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "points.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return &PointLog{file: f}
}

// Log writes event plus a "time" field. The caller's map is not modified.
func (pl *PointLog) Log(event map[string]any) {
	if pl == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.file == nil {
		return
	}
	_, _ = pl.file.Write(append(data, '\n'))
}

func (pl *PointLog) Close() error {
	if pl == nil {
		return nil
	}
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.file == nil {
		return nil
	}
	err := pl.file.Close()
	pl.file = nil
	return err
}
