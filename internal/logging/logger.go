package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// ParseLevel converts a case-insensitive level name into a LogLevel.
func ParseLevel(value string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "INFO":
		return LogLevelInfo, nil
	case "DEBUG":
		return LogLevelDebug, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", value)
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LogField represents a key-value pair in structured logging.
type LogField struct {
	Key   string
	Value any
}

// Field creates a LogField from a key-value pair.
func Field(key string, value any) LogField {
	return LogField{Key: key, Value: value}
}

// Logger provides structured logging capabilities with context support.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...LogField)
	Info(ctx context.Context, msg string, fields ...LogField)
	Warn(ctx context.Context, msg string, fields ...LogField)
	Error(ctx context.Context, msg string, err error, fields ...LogField)
	WithFields(fields ...LogField) Logger
	Sync() error
}

// NoOpLogger is a logger that discards all log entries.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...LogField)          {}
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...LogField)           {}
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...LogField)           {}
func (n *NoOpLogger) Error(_ context.Context, _ string, _ error, _ ...LogField) {}
func (n *NoOpLogger) WithFields(_ ...LogField) Logger                           { return n }
func (n *NoOpLogger) Sync() error                                               { return nil }

// Options configure New.
type Options struct {
	Level LogLevel
	// Path is a file the log is appended to. Ignored when Writer is set.
	Path string
	// Writer receives log entries directly; mostly useful in tests.
	Writer io.Writer
	// Console selects the human readable encoder instead of JSON.
	Console bool
}

// ZapLogger writes structured entries through zap. Trace IDs found in the context are
// attached to every entry.
type ZapLogger struct {
	zap  *zap.Logger
	file *os.File
}

// New builds a logger from opts. With neither Path nor Writer set, the returned logger
// discards everything.
func New(opts Options) (Logger, error) {
	var sink zapcore.WriteSyncer
	var file *os.File
	switch {
	case opts.Writer != nil:
		sink = zapcore.AddSync(opts.Writer)
	case strings.TrimSpace(opts.Path) != "":
		f, err := os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		sink = zapcore.AddSync(f)
	default:
		return &NoOpLogger{}, nil
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	var encoder zapcore.Encoder
	if opts.Console {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	level := opts.Level
	if level == "" {
		level = LogLevelInfo
	}
	core := zapcore.NewCore(encoder, sink, level.zapLevel())
	return &ZapLogger{zap: zap.New(core), file: file}, nil
}

func (z *ZapLogger) log(ctx context.Context, level zapcore.Level, msg string, err error, fields ...LogField) {
	entry := z.zap.Check(level, msg)
	if entry == nil {
		return
	}
	zapFields := make([]zap.Field, 0, len(fields)+2)
	for _, f := range fields {
		zapFields = append(zapFields, zap.Any(f.Key, f.Value))
	}
	if traceID := getTraceID(ctx); traceID != "" {
		zapFields = append(zapFields, zap.String("trace_id", traceID))
	}
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}
	entry.Write(zapFields...)
}

func (z *ZapLogger) Debug(ctx context.Context, msg string, fields ...LogField) {
	z.log(ctx, zapcore.DebugLevel, msg, nil, fields...)
}

func (z *ZapLogger) Info(ctx context.Context, msg string, fields ...LogField) {
	z.log(ctx, zapcore.InfoLevel, msg, nil, fields...)
}

func (z *ZapLogger) Warn(ctx context.Context, msg string, fields ...LogField) {
	z.log(ctx, zapcore.WarnLevel, msg, nil, fields...)
}

func (z *ZapLogger) Error(ctx context.Context, msg string, err error, fields ...LogField) {
	z.log(ctx, zapcore.ErrorLevel, msg, err, fields...)
}

func (z *ZapLogger) WithFields(fields ...LogField) Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zapFields = append(zapFields, zap.Any(f.Key, f.Value))
	}
	return &ZapLogger{zap: z.zap.With(zapFields...), file: z.file}
}

// Sync flushes buffered entries and closes the log file, if any.
func (z *ZapLogger) Sync() error {
	// Syncing stdout/stderr or pipes can fail with EINVAL; that is not worth reporting.
	_ = z.zap.Sync()
	if z.file != nil {
		return z.file.Close()
	}
	return nil
}

// traceIDKey is the context key for trace IDs.
type traceIDKey struct{}

// WithTraceID adds a trace ID to the context for request correlation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// getTraceID extracts the trace ID from context, if present.
func getTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewTraceID creates a trace ID for correlating the entries of one invocation.
func NewTraceID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
