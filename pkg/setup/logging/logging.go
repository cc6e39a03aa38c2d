// Package logging provides the shared logging system for the setupkit
// builder and the installer stub. Loggers are leveled, component-scoped
// wrappers around charmbracelet/log.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("builder")
//	logger.Info("build complete", "artifact", path)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// parseLevel converts a level string to a charmbracelet/log level.
func parseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is an optional log file. Empty logs to stderr only.
	Path string

	// Quiet suppresses console output entirely; file output, when
	// configured, is unaffected. The installer wizard sets this because it
	// owns the terminal.
	Quiet bool

	// Components maps component names to level overrides.
	Components map[string]string
}

type state struct {
	mu         sync.Mutex
	file       *os.File
	level      log.Level
	components map[string]log.Level
	loggers    map[string]*log.Logger
	writer     io.Writer
}

var global = &state{
	level:   log.InfoLevel,
	loggers: make(map[string]*log.Logger),
	writer:  os.Stderr,
}

// Init initializes the global logging system. Calling Init again reconfigures
// it; loggers handed out earlier keep their old destination.
func Init(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	components := make(map[string]log.Level, len(cfg.Components))
	for name, s := range cfg.Components {
		l, err := parseLevel(s)
		if err != nil {
			return fmt.Errorf("component %q: %w", name, err)
		}
		components[name] = l
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if global.file != nil {
		_ = global.file.Close()
		global.file = nil
	}

	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, os.Stderr)
	}
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		global.file = f
		writers = append(writers, f)
	}

	switch len(writers) {
	case 0:
		global.writer = io.Discard
	case 1:
		global.writer = writers[0]
	default:
		global.writer = io.MultiWriter(writers...)
	}

	global.level = level
	global.components = components
	global.loggers = make(map[string]*log.Logger)
	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *log.Logger {
	global.mu.Lock()
	defer global.mu.Unlock()

	if logger, ok := global.loggers[component]; ok {
		return logger
	}

	level := global.level
	if override, ok := global.components[component]; ok {
		level = override
	}

	logger := log.NewWithOptions(global.writer, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           level,
		Prefix:          component,
	})
	global.loggers[component] = logger
	return logger
}

// Close flushes and closes the log file, if any.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.file == nil {
		return nil
	}
	err := global.file.Close()
	global.file = nil
	return err
}

// DefaultLogPath returns the default log file location under the XDG state
// directory.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "setupkit", "setupkit.log")
}
