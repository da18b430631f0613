// Package logger is the process-wide zerolog setup: rotating file output
// through lumberjack, batched writes with flush-on-error, and
// request-scoped loggers carried through context.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	LoggerKey    contextKey = "logger"
)

var (
	globalLogger zerolog.Logger
	globalWriter *SmartWriter
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output io.Writer
}

// InitWithFile initializes the logger with rotating file output. When
// enableConsole is true, output is mirrored to stdout.
func InitWithFile(filename string, level string, format string, enableConsole bool) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		panic(err)
	}

	rotated := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	var out io.Writer = rotated
	if enableConsole {
		out = io.MultiWriter(os.Stdout, rotated)
	}

	Init(Config{Level: level, Format: format, Output: out})
}

// Init installs the global logger. Output goes through a SmartWriter, so
// shutdown paths must call Flush.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	globalWriter = NewSmartWriter(out, time.Second)

	zerolog.CallerMarshalFunc = shortCaller

	if cfg.Format == "console" {
		globalLogger = zerolog.New(consoleWriter(globalWriter)).With().Timestamp().Caller().Logger()
		return
	}
	globalLogger = zerolog.New(globalWriter).With().Timestamp().Caller().Logger()
}

// Flush drains buffered log lines to the underlying writer.
func Flush() {
	if globalWriter != nil {
		_ = globalWriter.Sync()
	}
}

// shortCaller trims the caller path to its last two segments, so entries
// read gs/usecase/gs_uc.go:120 rather than a full module path.
func shortCaller(pc uintptr, file string, line int) string {
	short := file
	slashes := 0
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			slashes++
			short = file[i+1:]
			if slashes == 2 {
				break
			}
		}
	}
	return fmt.Sprintf("%s:%d", short, line)
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05.000",
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("%-7s", i))
		},
		FormatCaller: func(i interface{}) string {
			return fmt.Sprintf("%-20s", i)
		},
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		},
	}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRequestID returns a context carrying requestID and a logger
// annotated with it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	annotated := globalLogger.With().Str("request_id", requestID).Logger()
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	return context.WithValue(ctx, LoggerKey, &annotated)
}

// FromContext extracts the request-scoped logger, falling back to the
// global one.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &globalLogger
	}
	if l, ok := ctx.Value(LoggerKey).(*zerolog.Logger); ok && l != nil {
		return l
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		annotated := globalLogger.With().Str("request_id", id).Logger()
		return &annotated
	}
	return &globalLogger
}

// GetRequestID returns the request ID carried by ctx, if any.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithFields returns a context whose logger carries the given fields.
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	with := FromContext(ctx).With()
	for k, v := range fields {
		with = with.Interface(k, v)
	}
	annotated := with.Logger()
	return context.WithValue(ctx, LoggerKey, &annotated)
}

// Context-aware event constructors.

func Debug(ctx context.Context) *zerolog.Event { return FromContext(ctx).Debug() }
func Info(ctx context.Context) *zerolog.Event  { return FromContext(ctx).Info() }
func Warn(ctx context.Context) *zerolog.Event  { return FromContext(ctx).Warn() }
func Error(ctx context.Context) *zerolog.Event { return FromContext(ctx).Error() }
func Fatal(ctx context.Context) *zerolog.Event { return FromContext(ctx).Fatal() }

// Global constructors for call sites without a context (startup, pumps).

func DebugGlobal() *zerolog.Event { return globalLogger.Debug() }
func InfoGlobal() *zerolog.Event  { return globalLogger.Info() }
func WarnGlobal() *zerolog.Event  { return globalLogger.Warn() }
func ErrorGlobal() *zerolog.Event { return globalLogger.Error() }
func FatalGlobal() *zerolog.Event { return globalLogger.Fatal() }
