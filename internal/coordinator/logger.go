package coordinator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger writes a timestamped per-project log file.
// A nil logger or one without a file discards everything.
type DebugLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewDebugLogger opens logPath for appending, creating parent directories.
// An empty path returns a no-op logger.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := &DebugLogger{file: f}
	logger.Log("=== coordinator log started at %s ===", time.Now().Format(time.RFC3339))
	return logger, nil
}

// NopLogger returns a logger that discards everything.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// Log writes one line and syncs the file.
func (l *DebugLogger) Log(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.file, "[%s] %s\n", time.Now().Format("15:04:05.000"), msg)
	l.file.Sync()
}

// Close closes the log file. Safe on a nil or no-op logger.
func (l *DebugLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}
