// Package logging sets up the slog loggers shared by every slaunch component.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Level is an slog level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the handler.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Config holds the logging configuration.
type Config struct {
	Level  Level
	Format Format

	// Output is "stdout", "stderr", "file" or "both" (stderr and file).
	Output string

	FilePath string

	// MaxSize is the size in megabytes at which the log file rotates.
	MaxSize    int64
	MaxBackups int
	Compress   bool

	AddSource bool
	Component string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     "stderr",
		FilePath:   DefaultLogPath(),
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   true,
		Component:  "slaunch",
	}
}

// DefaultLogPath returns the platform log location.
func DefaultLogPath() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "slaunch", "slaunch.log")
	case "windows":
		dir := os.Getenv("LOCALAPPDATA")
		if dir == "" {
			dir = os.Getenv("APPDATA")
		}
		return filepath.Join(dir, "slaunch", "logs", "slaunch.log")
	default:
		state := os.Getenv("XDG_STATE_HOME")
		if state == "" {
			state = filepath.Join(home, ".local", "state")
		}
		return filepath.Join(state, "slaunch", "slaunch.log")
	}
}

// Logger wraps slog.Logger and owns the log file, if any.
type Logger struct {
	*slog.Logger
	config  *Config
	rotator *Rotator
	level   *slog.LevelVar
}

var (
	defaultLogger *Logger
	defaultMu     sync.Mutex
)

// Default returns the process-wide logger, creating a stderr logger on
// first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		cfg := DefaultConfig()
		l, err := New(cfg)
		if err != nil {
			l = &Logger{Logger: slog.Default(), config: cfg}
		}
		defaultLogger = l
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	slog.SetDefault(l.Logger)
}

// New builds a Logger from cfg.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Logger{config: cfg}

	var writers []io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		writers = append(writers, os.Stdout)
	case "file", "both":
		r, err := NewRotator(cfg.FilePath, cfg.MaxSize*1024*1024, cfg.MaxBackups, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.rotator = r
		if strings.EqualFold(cfg.Output, "both") {
			writers = append(writers, os.Stderr)
		}
		writers = append(writers, r)
	default:
		writers = append(writers, os.Stderr)
	}
	return l.build(io.MultiWriter(writers...)), nil
}

// NewWriter builds a Logger writing to w.
func NewWriter(w io.Writer, cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Logger{config: cfg}
	return l.build(w)
}

func (l *Logger) build(w io.Writer) *Logger {
	l.level = new(slog.LevelVar)
	l.level.Set(l.config.Level)
	opts := &slog.HandlerOptions{
		Level:     l.level,
		AddSource: l.config.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if shouldRedact(a.Key) {
				a.Value = slog.StringValue("[REDACTED]")
			}
			return a
		},
	}
	var h slog.Handler
	if l.config.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	if l.config.Component != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("component", l.config.Component)})
	}
	l.Logger = slog.New(h)
	return l
}

// Recorded keystrokes can spell out passwords, so typed text never reaches
// the log. Attribute keys are matched per segment ("typed_text" matches
// "text", "context" does not).
var sensitiveKeys = map[string]bool{
	"password":   true,
	"secret":     true,
	"credential": true,
	"typed":      true,
	"text":       true,
	"token":      true,
	"key":        true,
	"event":      true,
}

func shouldRedact(key string) bool {
	segments := strings.FieldsFunc(strings.ToLower(key), func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for _, s := range segments {
		if sensitiveKeys[s] {
			return true
		}
	}
	return false
}

// WithComponent returns a child logger tagged with name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger:  l.Logger.With(slog.String("component", name)),
		config:  l.config,
		rotator: l.rotator,
		level:   l.level,
	}
}

// SetLevel changes the minimum level of l and every logger derived from it.
func (l *Logger) SetLevel(lvl Level) {
	if l.level != nil {
		l.level.Set(lvl)
	}
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	if l.level == nil {
		return l.config.Level
	}
	return l.level.Level()
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// ParseLevel parses a level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

// ParseFormat parses "text" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown log format: %q", s)
}
