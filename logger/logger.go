package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// FormatPretty is an alias of the console format.
const FormatPretty = "pretty"

// Logger is a zerolog logger tagged with the service name.
type Logger struct {
	zl      zerolog.Logger
	service string
}

var global atomic.Pointer[Logger]

// Init builds the process logger from cfg and installs it for the
// package-level functions.
func Init(cfg Config, serviceName string) *Logger {
	cfg.ApplyDefaults()
	l := New(&cfg, serviceName)
	global.Store(l)
	return l
}

// New creates a logger writing to the configured output.
func New(cfg *Config, serviceName string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return NewWithWriter(cfg, serviceName, w)
}

// NewWithWriter creates a logger writing to w. An unknown level means info.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zc zerolog.Context
	switch strings.ToLower(cfg.Format) {
	case "console", FormatPretty:
		zc = zerolog.New(consoleWriter(w, serviceName, cfg.NoColor)).With()
	default:
		zc = zerolog.New(w).With().Str("service", serviceName)
	}
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{zl: zc.Logger().Level(level), service: serviceName}
}

// NewDefault creates a console logger at info level.
func NewDefault(serviceName string) *Logger {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return New(cfg, serviceName)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) derive(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zl: fn(l.zl.With()).Logger(), service: l.service}
}

// WithComponent tags every entry with the component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context {
		return zc.Str(FieldComponent, name)
	})
}

// WithFields attaches fields to every entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context {
		return zc.Fields(fields)
	})
}

// WithContext attaches the trace and request ids carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context {
		if v, _ := ctx.Value(traceIDKey).(string); v != "" {
			zc = zc.Str(FieldTraceID, v)
		}
		if v := RequestIDFromContext(ctx); v != "" {
			zc = zc.Str(FieldRequestID, v)
		}
		return zc
	})
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	write(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	write(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	write(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	write(l.zl.Error(), msg, fields)
}

// write is a no-op for a disabled level; zerolog returns a nil event.
func write(e *zerolog.Event, msg string, fields []map[string]interface{}) {
	if e == nil {
		return
	}
	for _, f := range fields {
		e.Fields(f)
	}
	e.Msg(msg)
}

// Default returns the logger installed by Init, or a default console
// logger before Init has run.
func Default() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	l := NewDefault("transcribe")
	if global.CompareAndSwap(nil, l) {
		return l
	}
	return global.Load()
}

// Info logs on the Default logger. Used by code that runs outside any
// component, such as telemetry setup.
func Info(msg string, fields ...map[string]interface{}) {
	Default().Info(msg, fields...)
}

// Warn logs on the Default logger.
func Warn(msg string, fields ...map[string]interface{}) {
	Default().Warn(msg, fields...)
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	traceIDKey
)

// ContextWithRequestID stores a request id for WithContext to pick up.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithTraceID stores a trace id for WithContext to pick up.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

const ansiReset = "\033[0m"

var levelStyle = map[string][2]string{
	"trace": {"[TRC]", "\033[90m"},
	"debug": {"[DBG]", "\033[36m"},
	"info":  {"[INF]", "\033[32m"},
	"warn":  {"[WRN]", "\033[33m"},
	"error": {"[ERR]", "\033[31m"},
	"fatal": {"[FTL]", "\033[35m"},
}

// consoleWriter prints "[SVC][LVL] message key:value". SVC is the first
// three letters of the service name.
func consoleWriter(w io.Writer, serviceName string, noColor bool) zerolog.ConsoleWriter {
	paint := func(s, color string) string {
		if noColor {
			return s
		}
		return color + s + ansiReset
	}
	prefix := ""
	if len(serviceName) >= 3 {
		prefix = paint("["+strings.ToUpper(serviceName[:3])+"]", "\033[34m")
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			lvl := fmt.Sprint(i)
			style, ok := levelStyle[lvl]
			if !ok {
				return prefix + "[" + strings.ToUpper(lvl) + "]"
			}
			return prefix + paint(style[0], style[1])
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprint(i) + ":"
		},
	}
}
