// Package logx provides structured, level-aware logging for pipeline runs.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a logging severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{ //nolint:gochecknoglobals
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger writes timestamped, level-tagged lines to one or more sinks.
// A Logger is scoped to a component name (e.g. a run ID) so interleaved
// output from concurrent pipeline runs stays attributable.
type Logger struct {
	component string
	minLevel  Level
	mu        sync.Mutex
	std       *log.Logger
	file      *os.File
}

// debugFromEnv lets NOCTUA_DEBUG=1 lower the default floor to DEBUG.
func debugFromEnv() bool {
	v := strings.ToLower(os.Getenv("NOCTUA_DEBUG"))
	return v == "1" || v == "true"
}

// NewLogger creates a logger writing to stderr, scoped to component.
func NewLogger(component string) *Logger {
	minLevel := LevelInfo
	if debugFromEnv() {
		minLevel = LevelDebug
	}
	return &Logger{
		component: component,
		minLevel:  minLevel,
		std:       log.New(os.Stderr, "", 0),
	}
}

// WithFile additionally tees every log line to the given path, appending.
// Used for the per-run workDir/debug.log file the pipeline driver maintains.
func (l *Logger) WithFile(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open debug log %s: %w", path, err)
	}
	return &Logger{
		component: l.component,
		minLevel:  l.minLevel,
		std:       l.std,
		file:      f,
	}, nil
}

// Close releases the debug-log file handle, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func redact(s string) string {
	// Never let anything shaped like a bearer key hit a log line.
	if strings.Contains(s, "sk-") || strings.Contains(s, "ANTHROPIC_API_KEY") {
		return "[redacted]"
	}
	return s
}

func (l *Logger) log(level Level, format string, args ...any) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}
	msg := redact(fmt.Sprintf(format, args...))
	ts := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s [%s] %s: %s", ts, level, l.component, msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.std.Println(line)
	if l.file != nil {
		_, _ = io.WriteString(l.file, line+"\n")
	}
}

func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }
