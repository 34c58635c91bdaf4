// Package logbook records session activity (file selections, requests,
// outcomes, discarded responses) to a text file and keeps the most recent
// lines in memory for the terminal log panel.
package logbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const defaultRecent = 64

// Logbook appends leveled lines to a file.
type Logbook struct {
	path  string
	clock func() time.Time

	mu     sync.Mutex
	recent []string
	total  int
}

// Option customizes a Logbook.
type Option func(*Logbook)

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Logbook) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// New creates a logbook that writes to the provided path.
func New(path string, opts ...Option) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	l := &Logbook{path: path, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry to the logbook. Write failures are dropped;
// the in-memory tail still records the entry.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	message = strings.Join(strings.Fields(message), " ")
	line := fmt.Sprintf("%s %-5s %s",
		l.clock().UTC().Format(time.RFC3339),
		string(level),
		message,
	)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total++
	l.recent = append(l.recent, line)
	if len(l.recent) > defaultRecent {
		l.recent = l.recent[len(l.recent)-defaultRecent:]
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line + "\n")
}

// Tail returns up to maxLines of the entries written by this logbook, oldest
// first, along with the total number written.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lines := l.recent
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out, l.total
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}
