// Package log provides structured logging for go-palette.
// It wraps slog with console, JSON and rotating-file output.
package log

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Formats accepted by Options.Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the global logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string

	// Format is "text" or "json". Empty means json when GO_ENV=production,
	// text otherwise.
	Format string

	// File, when set, also writes JSON lines to a rotating file.
	File string

	// Output overrides stdout for the console handler.
	Output io.Writer
}

var (
	mu     sync.Mutex
	logger *slog.Logger
	file   io.Closer
)

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// New builds a logger from opts. The returned closer releases the log file
// and is nil when no file is configured.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	lvl := ParseLevel(opts.Level)

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	format := opts.Format
	if format == "" {
		format = FormatText
		if os.Getenv("GO_ENV") == "production" {
			format = FormatJSON
		}
	}

	var console slog.Handler
	switch format {
	case FormatJSON:
		console = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	case FormatText:
		console = tint.NewHandler(out, &tint.Options{
			Level:      lvl,
			TimeFormat: time.TimeOnly,
		})
	default:
		return nil, nil, errors.New("log: unknown format " + format)
	}

	if opts.File == "" {
		return slog.New(console), nil, nil
	}

	rotating := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10, // MB
		MaxBackups: 2,
		MaxAge:     28, // days
		Compress:   true,
	}
	fileHandler := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: lvl})
	return slog.New(slogmulti.Fanout(console, fileHandler)), rotating, nil
}

// Init builds the global logger and installs it as slog's default.
// Calling Init again replaces the logger and closes the previous file.
func Init(opts Options) error {
	l, c, err := New(opts)
	if err != nil {
		return err
	}

	mu.Lock()
	prev := file
	logger, file = l, c
	mu.Unlock()

	slog.SetDefault(l)
	if prev != nil {
		prev.Close()
	}
	return nil
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	c := file
	file = nil
	mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

// L returns the global logger instance.
func L() *slog.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		return slog.Default()
	}
	return l
}
