package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// LevelEnv overrides the configured level when set.
const LevelEnv = "SHEETSYNC_LOG_LEVEL"

// Config selects level, format and sinks for every component logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // empty disables the file sink

	// Stderr is auto, always or never. Auto writes to stderr only when it
	// is not a terminal, since the editor owns the terminal.
	Stderr string
}

var (
	mu      sync.Mutex
	current = Config{Level: "info", Format: "text", Stderr: "auto"}
	output  io.Writer = io.Discard
	file    *os.File
	loggers = make(map[string]*logrus.Entry)
)

// Setup applies cfg to all existing and future component loggers. It may be
// called again, for example after the config file changes.
func Setup(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Stderr == "" {
		cfg.Stderr = "auto"
	}

	var writers []io.Writer
	var opened *os.File
	if path := expandPath(strings.TrimSpace(cfg.File)); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		opened = f
		writers = append(writers, f)
	}
	if shouldLogToStderr(cfg.Stderr) {
		writers = append(writers, os.Stderr)
	}

	if file != nil {
		_ = file.Close()
	}
	file = opened
	current = cfg

	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = io.MultiWriter(writers...)
	}

	for _, entry := range loggers {
		configure(entry.Logger)
	}
	return nil
}

// NewLogger returns the logger for component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()

	if entry, ok := loggers[component]; ok {
		return entry
	}
	logger := logrus.New()
	configure(logger)
	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Close releases the file sink.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	output = io.Discard
	for _, entry := range loggers {
		entry.Logger.SetOutput(io.Discard)
	}
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// configure must be called with mu held.
func configure(logger *logrus.Logger) {
	logger.SetLevel(levelFor(current))
	logger.SetOutput(output)
	if current.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: output != os.Stderr || !isInteractive(),
	})
}

func levelFor(cfg Config) logrus.Level {
	levelStr := cfg.Level
	if env := strings.TrimSpace(os.Getenv(LevelEnv)); env != "" {
		levelStr = env
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func shouldLogToStderr(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return !isInteractive()
	}
}

func isInteractive() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], string(filepath.Separator)))
}
