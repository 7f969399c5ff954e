// Package logger is a small leveled logger writing to a line-capped file.
// Package-level functions log through the global logger once Open has been
// called, and to stderr before that.
package logger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultMaxLines is the number of lines kept in the log file
const DefaultMaxLines = 5000

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name; unknown or empty names give LevelInfo
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// file is the subset of *os.File the logger needs
type file interface {
	io.ReadWriteSeeker
	io.Closer
	Truncate(size int64) error
}

// Logger writes leveled lines to a file and trims the file to its newest
// MaxLines lines whenever it grows past that.
type Logger struct {
	mu        sync.Mutex
	out       io.Writer
	f         file // nil for writers that cannot be trimmed
	level     Level
	lineCount int
	MaxLines  int
	now       func() time.Time
}

var global *Logger

var fallback = &Logger{out: os.Stderr, level: LevelInfo, now: time.Now}

// Open opens (or creates) the log file at path, installs it as the global
// logger and returns it. The caller must Close it.
func Open(path string, level Level) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{out: f, f: f, level: level, MaxLines: DefaultMaxLines, now: time.Now}
	l.countExistingLines()
	global = l
	return l, nil
}

// NewWriterLogger logs to w without line limiting. Used for tests and stderr.
func NewWriterLogger(w io.Writer, level Level) *Logger {
	return &Logger{out: w, level: level, now: time.Now}
}

// SetGlobal installs l as the global logger; nil restores stderr logging
func SetGlobal(l *Logger) {
	global = l
}

func current() *Logger {
	if global != nil {
		return global
	}
	return fallback
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

func (l *Logger) logf(level Level, format string, v ...any) {
	if !l.enabled(level) {
		return
	}
	msg := fmt.Sprintf("%s [%s] %s\n", l.now().Format("2006/01/02 15:04:05"), level, fmt.Sprintf(format, v...))
	l.Write([]byte(msg))
}

func (l *Logger) Debug(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *Logger) Error(format string, v ...any) { l.logf(LevelError, format, v...) }

// Write implements io.Writer so the standard log package can be pointed at the logger
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.out.Write(p)
	if err != nil {
		return n, err
	}

	if l.f != nil && l.MaxLines > 0 {
		l.lineCount += strings.Count(string(p), "\n")
		if l.lineCount > l.MaxLines {
			l.trim()
		}
	}
	return n, nil
}

// Close closes the underlying file, if any
func (l *Logger) Close() error {
	if global == l {
		global = nil
	}
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}

func (l *Logger) countExistingLines() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.f.Seek(0, io.SeekStart)
	scanner := bufio.NewScanner(l.f)
	count := 0
	for scanner.Scan() {
		count++
	}
	l.lineCount = count
	l.f.Seek(0, io.SeekEnd)
}

// trim keeps only the newest MaxLines lines. Callers hold l.mu.
func (l *Logger) trim() {
	l.f.Seek(0, io.SeekStart)
	scanner := bufio.NewScanner(l.f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) > l.MaxLines {
		lines = lines[len(lines)-l.MaxLines:]
	}

	l.f.Truncate(0)
	l.f.Seek(0, io.SeekStart)
	w := bufio.NewWriter(l.f)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	w.Flush()
	l.lineCount = len(lines)
}

var noop = func() {}

// Trace returns a function that logs the time elapsed since Trace was called.
// Usage: defer logger.Trace("operation")()
func Trace(name string) func() {
	l := current()
	if !l.enabled(LevelTrace) {
		return noop
	}
	start := time.Now()
	return func() {
		l.logf(LevelTrace, "%s: %v", name, time.Since(start))
	}
}

func Debug(format string, v ...any) { current().Debug(format, v...) }
func Info(format string, v ...any)  { current().Info(format, v...) }
func Warn(format string, v ...any)  { current().Warn(format, v...) }
func Error(format string, v ...any) { current().Error(format, v...) }

// Fatal logs at error level and exits with status 1
func Fatal(format string, v ...any) {
	current().Error(format, v...)
	os.Exit(1)
}
