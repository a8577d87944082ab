// Package logging wraps log/slog with package-level helpers, a console plus
// rotating JSON file sink, and an HTTP access log middleware.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Options configures InitLoggerWithOptions.
type Options struct {
	Dir            string // Empty logs to the console only
	Env            string
	Level          string
	Verbose        bool
	RetentionWeeks int
	MaxFileSize    int64
}

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService
	mu                    sync.RWMutex
)

// InitLogger installs the default logger writing to logDir with info level.
func InitLogger(logDir string) {
	InitLoggerWithOptions(Options{Dir: logDir, RetentionWeeks: 4})
}

// InitLoggerWithOptions installs the global logger. A previous file sink is
// closed.
func InitLoggerWithOptions(opts Options) {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: consoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	service := &LoggingService{Logger: slog.New(console)}
	if opts.Dir != "" {
		if opts.RetentionWeeks <= 0 {
			opts.RetentionWeeks = 4
		}
		rl, err := NewRotatingLogger(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
		if err != nil {
			service.Logger.Error("Failed to initialize rotating logger, logging to console only", "error", err)
		} else {
			rl.startCleanup(24 * time.Hour)
			file := slog.NewJSONHandler(rl, &slog.HandlerOptions{Level: GetFileLogLevel()})
			service.Logger = slog.New(&multiHandler{handlers: []slog.Handler{console, file}})
			service.file = rl
		}
	}

	mu.Lock()
	previous := DefaultLoggingService
	DefaultLoggingService = service
	mu.Unlock()

	if previous != nil && previous.file != nil {
		previous.file.Close()
	}
	slog.SetDefault(service.Logger)
}

// Close flushes and closes the file sink, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	err := DefaultLoggingService.file.Close()
	DefaultLoggingService.file = nil
	return err
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// consoleLogLevel picks the console level. An explicit level wins except in
// tests, which stay quiet unless verbose.
func consoleLogLevel(env, level string, verbose bool) slog.Level {
	switch env {
	case "test":
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	case "prod", "staging":
		if level == "" {
			return slog.LevelWarn
		}
	}
	return parseLogLevel(level)
}

// GetFileLogLevel is the level of the JSON file sink. Files keep everything.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return nil
	}
	return DefaultLoggingService.Logger
}

func log(level slog.Level, msg string, args ...any) {
	l := logger()
	if l == nil {
		l = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	l.Log(context.Background(), level, msg, args...)
}

func Info(msg string, args ...any) {
	log(slog.LevelInfo, msg, args...)
}

func Error(msg string, args ...any) {
	log(slog.LevelError, msg, args...)
}

func Warn(msg string, args ...any) {
	log(slog.LevelWarn, msg, args...)
}

func Debug(msg string, args ...any) {
	log(slog.LevelDebug, msg, args...)
}

// multiHandler fans a record out to every handler that accepts its level.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
