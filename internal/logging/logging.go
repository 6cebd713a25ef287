package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging configuration. It is embedded in the
// application config file under the "logging" key.
type Config struct {
	Level          string `yaml:"level" json:"level"`
	Format         string `yaml:"format" json:"format"`
	FilePath       string `yaml:"file_path" json:"file_path,omitempty"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb" json:"file_max_size_mb,omitempty"`
	FileMaxFiles   int    `yaml:"file_max_files" json:"file_max_files,omitempty"`
	FileMaxAgeDays int    `yaml:"file_max_age_days" json:"file_max_age_days,omitempty"`
}

// DefaultConfig returns JSON logging at info level to stdout.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Format:         "json",
		FileMaxSizeMB:  50,
		FileMaxFiles:   3,
		FileMaxAgeDays: 14,
	}
}

// sameOutput reports whether two configs write to the same place in the same format.
func (c Config) sameOutput(o Config) bool {
	return c.Format == o.Format &&
		c.FilePath == o.FilePath &&
		c.FileMaxSizeMB == o.FileMaxSizeMB &&
		c.FileMaxFiles == o.FileMaxFiles &&
		c.FileMaxAgeDays == o.FileMaxAgeDays
}

// String returns a one-line summary suitable for a log attribute.
func (c Config) String() string {
	s := fmt.Sprintf("level=%s format=%s", c.Level, c.Format)
	if c.FilePath != "" {
		s += fmt.Sprintf(" file=%s max_size=%dMB max_files=%d max_age=%dd",
			c.FilePath, c.FileMaxSizeMB, c.FileMaxFiles, c.FileMaxAgeDays)
	}
	return s
}

// swapHandler forwards to an inner handler that can be replaced while
// loggers derived from it are in use.
type swapHandler struct {
	inner atomic.Pointer[slog.Handler]
}

func newSwapHandler(h slog.Handler) *swapHandler {
	s := &swapHandler{}
	s.inner.Store(&h)
	return s
}

func (s *swapHandler) swap(h slog.Handler) { s.inner.Store(&h) }

func (s *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*s.inner.Load()).Enabled(ctx, level)
}

func (s *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return (*s.inner.Load()).Handle(ctx, r)
}

// WithAttrs and WithGroup snapshot the current inner handler. Loggers created
// with .With before a format swap keep the old output; component loggers are
// created once at startup, so only the level change reaches them.
func (s *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newSwapHandler((*s.inner.Load()).WithAttrs(attrs))
}

func (s *swapHandler) WithGroup(name string) slog.Handler {
	return newSwapHandler((*s.inner.Load()).WithGroup(name))
}

// Manager owns the process logger and applies config changes at runtime.
type Manager struct {
	mu      sync.Mutex
	level   *slog.LevelVar
	handler *swapHandler
	config  Config
	closer  io.Closer
}

// NewManager builds a Manager and the logger it controls.
func NewManager(cfg Config) (*Manager, *slog.Logger) {
	lvl := &slog.LevelVar{}
	lvl.Set(parseLevel(cfg.Level))

	w, closer := buildWriter(cfg)
	m := &Manager{
		level:   lvl,
		handler: newSwapHandler(buildHandler(w, lvl, cfg.Format)),
		config:  cfg,
		closer:  closer,
	}
	return m, slog.New(m.handler)
}

// Reconfigure applies cfg. A level change takes effect immediately for every
// derived logger; a format or file change rebuilds the output. It reports
// whether anything changed.
func (m *Manager) Reconfigure(cfg Config) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg == m.config {
		return false
	}

	m.level.Set(parseLevel(cfg.Level))

	if !cfg.sameOutput(m.config) {
		if m.closer != nil {
			m.closer.Close() //nolint:errcheck
			m.closer = nil
		}
		w, closer := buildWriter(cfg)
		m.handler.swap(buildHandler(w, m.level, cfg.Format))
		m.closer = closer
	}

	m.config = cfg
	return true
}

// Config returns the active configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Close releases the log file, if one is open. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closer == nil {
		return nil
	}
	err := m.closer.Close()
	m.closer = nil
	return err
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s names a supported level.
func ValidLevel(s string) bool {
	switch s {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// ValidFormat reports whether s names a supported output format.
func ValidFormat(s string) bool {
	return s == "json" || s == "text"
}

// buildWriter returns stdout, or stdout tee'd into a rotating file when a
// file path is configured. The closer is the rotating file.
func buildWriter(cfg Config) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return os.Stdout, nil
	}

	defaults := DefaultConfig()
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    positiveOr(cfg.FileMaxSizeMB, defaults.FileMaxSizeMB),
		MaxBackups: positiveOr(cfg.FileMaxFiles, defaults.FileMaxFiles),
		MaxAge:     positiveOr(cfg.FileMaxAgeDays, defaults.FileMaxAgeDays),
	}
	return io.MultiWriter(os.Stdout, lj), lj
}

func buildHandler(w io.Writer, leveler slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: leveler}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
