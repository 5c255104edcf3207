package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrylevesque/csms/internal/config"
	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog logger from cfg. The returned closer is a no-op
// unless output is a file.
func NewLogger(cfg config.LogConfig) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer
	var closer io.Closer = nopCloser{}
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case "file":
		f, err := NewRotatingFile(ResolvePath(cfg.FilePath))
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		out, closer = f, f
	default:
		return zerolog.Nop(), nil, fmt.Errorf("unknown log output %q", cfg.Output)
	}

	if strings.ToLower(cfg.Format) == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: cfg.Output == "file"}
	}
	log := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return log, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// RotatingFile is a log file that is renamed to <name>.<date> and reopened
// the first time it is written on a new day.
type RotatingFile struct {
	mu   sync.Mutex
	path string
	file *os.File
	day  string
	now  func() time.Time
}

// NewRotatingFile opens path for appending, creating its directory.
func NewRotatingFile(path string) (*RotatingFile, error) {
	rf := &RotatingFile{path: path, now: time.Now}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) open() error {
	file, err := os.OpenFile(rf.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	rf.file = file
	rf.day = rf.now().Format("2006-01-02")
	return nil
}

func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if today := rf.now().Format("2006-01-02"); today != rf.day {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}
	return rf.file.Write(p)
}

func (rf *RotatingFile) rotate() error {
	prev := rf.day
	if err := rf.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	if err := os.Rename(rf.path, rf.path+"."+prev); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return rf.open()
}

// Close closes the log file
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.file.Close()
}
