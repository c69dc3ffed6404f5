package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

// Format selects the slog handler used for output.
type Format string

const (
	// FormatText is human-readable, colorized output.
	FormatText Format = "text"
	// FormatJSON emits one JSON object per line.
	FormatJSON Format = "json"
)

var (
	mu           sync.RWMutex
	currentLevel LogLevel
	logger       *slog.Logger
	levelOnce    sync.Once
)

// initLevel initializes the log level from environment variables. Setup
// overrides it once configuration has been loaded.
func initLevel() {
	levelOnce.Do(func() {
		lvl := LevelInfo
		if debug := os.Getenv("DEBUG"); debug != "" {
			switch strings.ToLower(debug) {
			case "1", "true", "yes", "on":
				lvl = LevelDebug
			}
		}
		if lvl != LevelDebug {
			if parsed, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
				lvl = parsed
			}
		}

		mu.Lock()
		defer mu.Unlock()
		if logger == nil {
			currentLevel = lvl
			logger = slog.New(newHandler(os.Stderr, FormatText, lvl))
		}
	})
}

// ParseLevel converts a level name to a LogLevel. The second return value
// is false for unknown names.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Setup installs the process-wide logger. It also redirects the standard
// library logger so that net/http and friends end up in the same stream.
func Setup(w io.Writer, format Format, level LogLevel) {
	levelOnce.Do(func() {})

	h := newHandler(w, format, level)

	mu.Lock()
	currentLevel = level
	logger = slog.New(h)
	mu.Unlock()

	slog.SetDefault(logger)
	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(h, slog.LevelInfo).Writer())
}

func newHandler(w io.Writer, format Format, level LogLevel) slog.Handler {
	if format == FormatJSON {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level.slogLevel(),
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339Nano))
				}
				return a
			},
		})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level.slogLevel(),
		TimeFormat: "2006/01/02 15:04:05",
		NoColor:    !isTerminal(w),
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Logger returns the underlying structured logger.
func Logger() *slog.Logger {
	initLevel()
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func emit(level LogLevel, format string, args []interface{}) {
	if GetLevel() > level {
		return
	}
	Logger().Log(context.Background(), level.slogLevel(), fmt.Sprintf(format, args...))
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	emit(LevelDebug, format, args)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	emit(LevelInfo, format, args)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	emit(LevelWarn, format, args)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	emit(LevelError, format, args)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	Logger().Error("FATAL: " + fmt.Sprintf(format, args...))
	os.Exit(1)
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
