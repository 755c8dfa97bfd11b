package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin structured logger over zerolog. Child loggers created by
// With share the writer.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return &Logger{zl: zl}, nil
}

// Nop discards everything; used by tests and optional components.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying fields on every event.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.addToContext(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func emit(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		f.addTo(event)
	}
	event.Msg(msg)
}

// Field is a typed key/value attached to a log event.
type Field struct {
	key string
	add func(e *zerolog.Event, key string)
	ctx func(c zerolog.Context, key string) zerolog.Context
}

func (f Field) addTo(e *zerolog.Event) { f.add(e, f.key) }

func (f Field) addToContext(c zerolog.Context) zerolog.Context { return f.ctx(c, f.key) }

func String(key, v string) Field {
	return Field{key,
		func(e *zerolog.Event, k string) { e.Str(k, v) },
		func(c zerolog.Context, k string) zerolog.Context { return c.Str(k, v) }}
}

func Strings(key string, v []string) Field {
	return Field{key,
		func(e *zerolog.Event, k string) { e.Strs(k, v) },
		func(c zerolog.Context, k string) zerolog.Context { return c.Strs(k, v) }}
}

func Int(key string, v int) Field {
	return Field{key,
		func(e *zerolog.Event, k string) { e.Int(k, v) },
		func(c zerolog.Context, k string) zerolog.Context { return c.Int(k, v) }}
}

func Int64(key string, v int64) Field {
	return Field{key,
		func(e *zerolog.Event, k string) { e.Int64(k, v) },
		func(c zerolog.Context, k string) zerolog.Context { return c.Int64(k, v) }}
}

func Float64(key string, v float64) Field {
	return Field{key,
		func(e *zerolog.Event, k string) { e.Float64(k, v) },
		func(c zerolog.Context, k string) zerolog.Context { return c.Float64(k, v) }}
}

func Bool(key string, v bool) Field {
	return Field{key,
		func(e *zerolog.Event, k string) { e.Bool(k, v) },
		func(c zerolog.Context, k string) zerolog.Context { return c.Bool(k, v) }}
}

// Duration is logged in milliseconds.
func Duration(key string, v time.Duration) Field {
	ms := v.Milliseconds()
	return Int64(key, ms)
}

func Any(key string, v interface{}) Field {
	return Field{key,
		func(e *zerolog.Event, k string) { e.Interface(k, v) },
		func(c zerolog.Context, k string) zerolog.Context { return c.Interface(k, v) }}
}

func Error(err error) Field {
	return Field{zerolog.ErrorFieldName,
		func(e *zerolog.Event, _ string) { e.Err(err) },
		func(c zerolog.Context, _ string) zerolog.Context { return c.Err(err) }}
}
