// Package logger provides leveled logging for artsync.
// Debug and Info messages are printed to stderr only in verbose mode
// (--verbose); warnings and errors are always printed. When a log file is
// set, every message is also appended to it with a timestamp.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	file    io.WriteCloser
	now     = time.Now
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the console writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetLogFile appends all messages to the file at path. An empty path closes
// the current log file.
func SetLogFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
	}
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	file = f
	return nil
}

// Close closes the log file, if any.
func Close() error {
	return SetLogFile("")
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write("DEBUG", false, format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write("INFO", false, format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	write("WARN", true, format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	write("ERROR", true, format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func write(level string, always bool, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	msg := fmt.Sprintf(format, args...)
	if always || verbose {
		fmt.Fprintf(output, "[%s] %s\n", level, msg)
	}
	if file != nil {
		fmt.Fprintf(file, "%s [%s] %s\n", now().Format(time.RFC3339), level, msg)
	}
}
