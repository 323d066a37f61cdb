// Package logger provides leveled logging on top of the standard log package.
// Nothing is written until Init is called.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level represents a logging level.
type Level int

const (
	// DebugLevel logs are verbose and disabled by default.
	DebugLevel Level = iota
	// InfoLevel is the default level.
	InfoLevel
	// WarnLevel logs recoverable failures.
	WarnLevel
	// ErrorLevel logs failures the user should know about.
	ErrorLevel
)

type leveledLogger struct {
	level  Level
	logger *log.Logger
}

var (
	mu            sync.RWMutex
	defaultLogger *leveledLogger
)

// ParseLevel maps a level name to a Level. Unknown names map to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Init sets the default logger to write to w at the given level.
func Init(level string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = &leveledLogger{
		level:  ParseLevel(level),
		logger: log.New(w, "", log.LstdFlags|log.Lmicroseconds),
	}
}

// OpenFile opens path for appending, creating parent directories as needed.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Debug logs a message at DebugLevel.
func Debug(format string, args ...any) {
	output(DebugLevel, "[DEBUG] ", format, args...)
}

// Info logs a message at InfoLevel.
func Info(format string, args ...any) {
	output(InfoLevel, "[INFO] ", format, args...)
}

// Warn logs a message at WarnLevel.
func Warn(format string, args ...any) {
	output(WarnLevel, "[WARN] ", format, args...)
}

// Error logs a message at ErrorLevel.
func Error(format string, args ...any) {
	output(ErrorLevel, "[ERROR] ", format, args...)
}

func output(level Level, prefix, format string, args ...any) {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil || l.level > level {
		return
	}
	// Best-effort write; a failing log sink is not reported.
	_ = l.logger.Output(3, prefix+fmt.Sprintf(format, args...))
}
