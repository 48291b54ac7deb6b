// Package logger provides the structured logger used by every migrator command.
//
// Records go to the console and, when a run file is configured, to a JSON-lines
// file. The run file is the durable record of a migration or cleanup run and is
// parsed back by the runlog package, so it is always JSON regardless of the
// console format.
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for structured logging.
type Logger interface {
	// Debug logs a message at debug level.
	Debug(msg string, fields ...Field)
	// Info logs a message at info level.
	Info(msg string, fields ...Field)
	// Warn logs a message at warning level.
	Warn(msg string, fields ...Field)
	// Error logs a message at error level.
	Error(msg string, fields ...Field)
	// With returns a new logger with the given fields attached.
	With(fields ...Field) Logger
	// Sync flushes any buffered log entries.
	Sync() error
	// Close flushes buffered entries and releases the run file, if any.
	Close() error
}

// Field is a type alias for zap.Field.
type Field = zap.Field

type zapLogger struct {
	logger *zap.Logger
	close  func()
}

// New creates a Logger from cfg. Defaults are applied to a copy of cfg.
func New(cfg Config) (Logger, error) {
	cfg.SetDefaults()

	consoleLevel := parseLevel(cfg.Level)
	level := zap.NewAtomicLevelAt(consoleLevel)
	// The run file always keeps Info records: outcomes are read back from it.
	fileLevel := zap.NewAtomicLevelAt(min(consoleLevel, zapcore.InfoLevel))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	cores := make([]zapcore.Core, 0, 2)
	if !cfg.Quiet {
		cores = append(cores, zapcore.NewCore(consoleEncoder(cfg.Format, encCfg), zapcore.Lock(os.Stdout), level))
	}

	closeFn := func() {}
	if cfg.FilePath != "" {
		sink, closeSink, err := zap.Open(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.FilePath, err)
		}
		closeFn = closeSink
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, fileLevel))
	}

	opts := []zap.Option{zap.AddCallerSkip(1)}
	if cfg.Development {
		opts = append(opts, zap.AddCaller(), zap.Development())
	}

	return &zapLogger{
		logger: zap.New(zapcore.NewTee(cores...), opts...),
		close:  closeFn,
	}, nil
}

func consoleEncoder(format string, encCfg zapcore.EncoderConfig) zapcore.Encoder {
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(encCfg)
	}
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)
	return zapcore.NewConsoleEncoder(encCfg)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, fields...)
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, fields...)
}

func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, fields...)
}

func (l *zapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, fields...)
}

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{
		logger: l.logger.With(fields...),
		close:  l.close,
	}
}

// Sync flushes buffered entries. Syncing stdout fails on some terminals
// (ENOTTY/EINVAL); those errors are not actionable and are dropped.
func (l *zapLogger) Sync() error {
	if err := l.logger.Sync(); err != nil && !isIgnorableSyncError(err) {
		return err
	}
	return nil
}

func (l *zapLogger) Close() error {
	err := l.Sync()
	l.close()
	return err
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "inappropriate ioctl") ||
		strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "bad file descriptor")
}

// String creates a string field.
func String(key, val string) Field {
	return zap.String(key, val)
}

// Int creates an int field.
func Int(key string, val int) Field {
	return zap.Int(key, val)
}

// Int64 creates an int64 field.
func Int64(key string, val int64) Field {
	return zap.Int64(key, val)
}

// Bool creates a bool field.
func Bool(key string, val bool) Field {
	return zap.Bool(key, val)
}

// Duration creates a duration field.
func Duration(key string, val time.Duration) Field {
	return zap.Duration(key, val)
}

// Time creates a time field.
func Time(key string, val time.Time) Field {
	return zap.Time(key, val)
}

// Error creates an error field with the key "error".
func Error(err error) Field {
	return zap.Error(err)
}

// Any creates a field that can hold any value.
func Any(key string, val any) Field {
	return zap.Any(key, val)
}

// Strings creates a string slice field.
func Strings(key string, val []string) Field {
	return zap.Strings(key, val)
}
