// Package logging provides leveled, prefixed logging for the filesystem,
// backed by apex/log.
package logging

import (
	"os"
	"sync"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	// LevelError only logs errors
	LevelError LogLevel = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs general information, warnings and errors
	LevelInfo
	// LevelDebug logs detailed debug information and all above
	LevelDebug
	// LevelTrace logs very detailed trace information and all above
	LevelTrace
)

var apexLevels = map[LogLevel]log.Level{
	LevelError: log.ErrorLevel,
	LevelWarn:  log.WarnLevel,
	LevelInfo:  log.InfoLevel,
	// apex/log has no trace level; trace rides on debug and is gated
	// by our own level check instead.
	LevelDebug: log.DebugLevel,
	LevelTrace: log.DebugLevel,
}

// Logger provides leveled logging with a subsystem prefix.
type Logger struct {
	level  LogLevel
	entry  *log.Entry
	parent *Logger
	mu     sync.RWMutex
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the default logger instance
func GetLogger() *Logger {
	once.Do(func() {
		defaultLogger = NewLogger("nlinkfs")

		// Set initial log level from environment
		if level := os.Getenv("LOG_LEVEL"); level != "" {
			switch level {
			case "ERROR":
				defaultLogger.SetLevel(LevelError)
			case "WARN":
				defaultLogger.SetLevel(LevelWarn)
			case "INFO":
				defaultLogger.SetLevel(LevelInfo)
			case "DEBUG":
				defaultLogger.SetLevel(LevelDebug)
			case "TRACE":
				defaultLogger.SetLevel(LevelTrace)
			}
		}

		// Enable debug logging if FUSE_DEBUG is set
		if os.Getenv("FUSE_DEBUG") != "" {
			defaultLogger.SetLevel(LevelDebug)
		}
	})
	return defaultLogger
}

// NewLogger creates a new logger with the given subsystem name.
func NewLogger(subsystem string) *Logger {
	base := &log.Logger{
		Handler: cli.New(os.Stderr),
		// The apex level stays wide open; filtering happens in
		// shouldLog so Trace can share DebugLevel.
		Level: log.DebugLevel,
	}

	return &Logger{
		level: LevelInfo, // Default to INFO level
		entry: base.WithField("subsystem", subsystem),
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// shouldLog determines if a message at the given level should be logged.
// Prefixed child loggers defer to their parent's level so a single
// SetLevel call governs the whole process.
func (l *Logger) shouldLog(level LogLevel) bool {
	if l.parent != nil {
		return l.parent.shouldLog(level)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level <= l.level
}

// log performs the actual logging
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	switch apexLevels[level] {
	case log.ErrorLevel:
		l.entry.Errorf(format, args...)
	case log.WarnLevel:
		l.entry.Warnf(format, args...)
	case log.InfoLevel:
		l.entry.Infof(format, args...)
	default:
		l.entry.Debugf(format, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Trace logs a trace message
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(LevelTrace, format, args...)
}

// WithPrefix creates a child logger tagged with an additional component name.
func (l *Logger) WithPrefix(prefix string) *Logger {
	root := l
	if l.parent != nil {
		root = l.parent
	}
	return &Logger{
		entry:  l.entry.WithField("component", prefix),
		parent: root,
	}
}
