package logbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// tailCapacity bounds the in-memory ring the TUI log panel reads from.
const tailCapacity = 64

// Logbook persists run progress to ~/.burrow/logs/burrow.log via zerolog and
// keeps a short in-memory tail so the TUI can show recent entries even while
// the alternate screen hides stdout.
type Logbook struct {
	path string
	file *os.File
	log  zerolog.Logger

	mu     sync.Mutex
	recent []string
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logbook: open log file: %w", err)
	}
	logger := zerolog.New(file).With().Timestamp().Str("app", "burrow").Logger()
	return &Logbook{path: path, file: file, log: logger}, nil
}

// Logger exposes the underlying zerolog logger for components that emit
// structured fields (syncer, runner).
func (l *Logbook) Logger() zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return l.log
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close releases the file handle.
func (l *Logbook) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Tail returns up to maxLines of the most recent entries.
func (l *Logbook) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recent) == 0 {
		return nil
	}
	start := 0
	if len(l.recent) > maxLines {
		start = len(l.recent) - maxLines
	}
	out := make([]string, len(l.recent)-start)
	copy(out, l.recent[start:])
	return out
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.append(zerolog.InfoLevel, format, args...)
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.append(zerolog.WarnLevel, format, args...)
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.append(zerolog.ErrorLevel, format, args...)
}

func (l *Logbook) append(level zerolog.Level, format string, args ...any) {
	if l == nil {
		return
	}
	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		return
	}
	l.log.WithLevel(level).Msg(message)

	line := fmt.Sprintf("%s %-5s %s",
		time.Now().Format("15:04:05"),
		strings.ToUpper(level.String()),
		message,
	)
	l.mu.Lock()
	l.recent = append(l.recent, line)
	if len(l.recent) > tailCapacity {
		l.recent = l.recent[len(l.recent)-tailCapacity:]
	}
	l.mu.Unlock()
}
