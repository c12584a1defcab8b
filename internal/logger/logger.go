// Package logger wraps zerolog with the handful of helpers tabula uses:
// leveled messages, child loggers carrying fixed fields, and structured
// one-shot events for the pool and the HTTP layer.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin wrapper over zerolog.Logger.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // json, console
	Output io.Writer // defaults to os.Stdout
}

// DefaultConfig returns production defaults: info level, JSON to stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: os.Stdout,
	}
}

// New creates a logger. The level is applied to this logger only, so
// several loggers with different levels can coexist in one process.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// WithContext stores the logger in ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.zlog.WithContext(ctx)
}

// FromContext retrieves the logger stored by WithContext, or a no-op
// logger when ctx carries none.
func FromContext(ctx context.Context) *Logger {
	zlog := zerolog.Ctx(ctx)
	if zlog.GetLevel() == zerolog.Disabled {
		return Nop()
	}
	return &Logger{zlog: *zlog}
}

// Component returns a child logger tagged with component=name.
func (l *Logger) Component(name string) *Logger {
	return l.With().Str("component", name).Logger()
}

// With starts a child logger with additional fixed fields.
func (l *Logger) With() *Context {
	return &Context{ctx: l.zlog.With()}
}

// Context chains fields onto a child logger.
type Context struct {
	ctx zerolog.Context
}

func (c *Context) Str(key, val string) *Context {
	c.ctx = c.ctx.Str(key, val)
	return c
}

func (c *Context) Int(key string, val int) *Context {
	c.ctx = c.ctx.Int(key, val)
	return c
}

func (c *Context) Err(err error) *Context {
	c.ctx = c.ctx.Err(err)
	return c
}

func (c *Context) Any(key string, val any) *Context {
	c.ctx = c.ctx.Interface(key, val)
	return c
}

func (c *Context) Logger() *Logger {
	return &Logger{zlog: c.ctx.Logger()}
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zlog.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

func (l *Logger) Debugf(format string, args ...any) { l.zlog.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.zlog.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zlog.Warn().Msgf(format, args...) }

// DebugWith logs msg at debug level with the given fields.
func (l *Logger) DebugWith(msg string, fields map[string]any) {
	emit(l.zlog.Debug(), msg, fields)
}

// InfoWith logs msg at info level with the given fields.
func (l *Logger) InfoWith(msg string, fields map[string]any) {
	emit(l.zlog.Info(), msg, fields)
}

// WarnWith logs msg at warn level with err and the given fields.
func (l *Logger) WarnWith(msg string, err error, fields map[string]any) {
	emit(l.zlog.Warn().Err(err), msg, fields)
}

// ErrorWith logs msg at error level with err and the given fields.
func (l *Logger) ErrorWith(msg string, err error, fields map[string]any) {
	emit(l.zlog.Error().Err(err), msg, fields)
}

// Event exposes a raw zerolog event for callers that build many fields,
// such as the HTTP access log.
func (l *Logger) Event(level zerolog.Level) *zerolog.Event {
	return l.zlog.WithLevel(level)
}

func emit(ev *zerolog.Event, msg string, fields map[string]any) {
	for k, v := range fields {
		switch val := v.(type) {
		case time.Duration:
			ev = ev.Dur(k, val)
		case string:
			ev = ev.Str(k, val)
		case int:
			ev = ev.Int(k, val)
		case int64:
			ev = ev.Int64(k, val)
		default:
			ev = ev.Interface(k, val)
		}
	}
	ev.Msg(msg)
}

// ParseLevel maps a level name to a zerolog level; unknown names are info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
