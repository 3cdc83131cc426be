// SPDX-License-Identifier: MIT
package log

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// --- Global Logger State ---

// currentLevel holds the current global log level atomically.
var currentLevel atomic.Uint32

// backend is the standard logger every message ends up in.
var backend = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects every logger. Tests use it to capture output.
func SetOutput(w interface{ Write([]byte) (int, error) }) {
	backend.SetOutput(w)
}

func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

func emit(level LogLevel, prefix, msg string) {
	if level == LevelFatal {
		backend.Fatalf("[%s] %s%s", level, prefix, msg)
		return
	}
	// INFO and WARN are one character shorter; keep the message column aligned.
	pad := " "
	if level == LevelInfo || level == LevelWarn {
		pad = "  "
	}
	backend.Printf("[%s]%s%s%s", level, pad, prefix, msg)
}

// --- Package level functions ---

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...any) {
	if shouldLog(LevelDebug) {
		emit(LevelDebug, "", fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...any) {
	if shouldLog(LevelInfo) {
		emit(LevelInfo, "", fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...any) {
	if shouldLog(LevelWarn) {
		emit(LevelWarn, "", fmt.Sprintf(format, v...))
	}
}

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...any) {
	if shouldLog(LevelError) {
		emit(LevelError, "", fmt.Sprintf(format, v...))
	}
}

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...any) {
	emit(LevelFatal, "", fmt.Sprintf(format, v...))
}

// --- Named loggers ---

// Logger prefixes every message with the component it belongs to. The level
// is still the global one.
type Logger struct {
	prefix string
}

// Named returns a Logger for component, e.g. Named("UDP Sender").
func Named(component string) *Logger {
	return &Logger{prefix: component + ": "}
}

func (l *Logger) Debugf(format string, v ...any) {
	if shouldLog(LevelDebug) {
		emit(LevelDebug, l.prefix, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Infof(format string, v ...any) {
	if shouldLog(LevelInfo) {
		emit(LevelInfo, l.prefix, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Warnf(format string, v ...any) {
	if shouldLog(LevelWarn) {
		emit(LevelWarn, l.prefix, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Errorf(format string, v ...any) {
	if shouldLog(LevelError) {
		emit(LevelError, l.prefix, fmt.Sprintf(format, v...))
	}
}

// --- Rate limited fault counters ---

// Counter counts recurring transient faults (audio overflows, failed sends)
// and reports the running total at most once per interval.
type Counter struct {
	log      *Logger
	what     string
	interval time.Duration

	count    atomic.Uint64
	mu       sync.Mutex
	lastEmit time.Time
}

// NewCounter creates a Counter that reports through l.
func NewCounter(l *Logger, what string, interval time.Duration) *Counter {
	if interval <= 0 {
		interval = time.Second
	}
	return &Counter{log: l, what: what, interval: interval}
}

// Inc records one fault and logs the total if the interval has elapsed.
func (c *Counter) Inc(now time.Time) uint64 {
	n := c.count.Add(1)
	c.mu.Lock()
	if now.Sub(c.lastEmit) >= c.interval {
		c.lastEmit = now
		c.mu.Unlock()
		c.log.Warnf("%s has happened %d times", c.what, n)
		return n
	}
	c.mu.Unlock()
	return n
}

// Count returns the running total.
func (c *Counter) Count() uint64 {
	return c.count.Load()
}
