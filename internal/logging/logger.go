package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger appends timestamped lines to a file, optionally mirrored to a
// second writer such as stderr for the foreground stub server.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	mirror io.Writer
}

// New creates (or reuses) the log file at path.
func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f}, nil
}

// Mirror copies every line to w as well.
func (l *Logger) Mirror(w io.Writer) *Logger {
	if l != nil {
		l.mirror = w
	}
	return l
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single timestamped line to the log file.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	timestamp := time.Now().Format(time.RFC3339)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "[%s] %s\n", timestamp, line)
	if l.mirror != nil {
		fmt.Fprintf(l.mirror, "[%s] %s\n", timestamp, line)
	}
}
