package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// ParseLevel maps a config string ("debug", "info", "error") to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(LevelDebug):
		return LevelDebug
	case string(LevelError):
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes one line per entry:
//
//	2025-01-01T00:00:00Z [LEVEL] msg key=value ...
//
// A Logger is safe for concurrent use. Its Debug method satisfies recur.Sink.
type Logger struct {
	mu  sync.RWMutex
	out *stdlog.Logger
	min Level
	kv  []any
}

// New returns a Logger writing to w at or above level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		out: stdlog.New(w, "", 0),
		min: level,
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelError)
}

// With returns a child Logger that appends kv to every entry.
func (l *Logger) With(kv ...any) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	child := &Logger{out: l.out, min: l.min}
	child.kv = append(append(child.kv, l.kv...), kv...)
	return child
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.min = level
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.log(LevelDebug, msg, kv...)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.log(LevelInfo, msg, kv...)
}

func (l *Logger) Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	l.log(LevelError, msg, extended...)
}

func (l *Logger) log(level Level, msg string, kv ...any) {
	l.mu.RLock()
	threshold, out, base := l.min, l.out, l.kv
	l.mu.RUnlock()

	if !enabled(threshold, level) {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format(time.RFC3339Nano))
	b.WriteString(" [")
	b.WriteString(string(level))
	b.WriteString("] ")
	b.WriteString(msg)
	writeKVs(&b, base)
	writeKVs(&b, kv)

	out.Println(b.String())
}

func enabled(threshold, level Level) bool {
	switch threshold {
	case LevelDebug:
		return true
	case LevelInfo:
		return level == LevelInfo || level == LevelError
	case LevelError:
		return level == LevelError
	default:
		return true
	}
}

// writeKVs expects pairs: key, value, key, value, ... A trailing odd value and
// non-string keys are dropped.
func writeKVs(b *strings.Builder, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(fmt.Sprint(kv[i+1]))
	}
}

var (
	std     *Logger
	stdOnce sync.Once
)

// Default returns the process logger used by cmd/bdbm. Library packages take
// a *Logger explicitly instead.
func Default() *Logger {
	stdOnce.Do(func() {
		std = New(os.Stderr, LevelInfo)
	})
	return std
}

func SetLevel(l Level) {
	Default().SetLevel(l)
}

func Debug(msg string, kv ...any) {
	Default().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	Default().Info(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	Default().Error(msg, err, kv...)
}
