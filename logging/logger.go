// Package logging provides the structured logger used across roomify:
// zap with console and rotating-file output and automatic redaction of
// credentials.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger. Every field passes through the sensitive data
// filter before it is encoded.
//
// Example:
//
//	logger, err := NewLogger(true, "roomify.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("server started", zap.Int("port", 8080))
//	logger.Infow("request received", "method", "POST", "path", "/generate")
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger

	isDevelopment bool
	logFilePath   string
}

// Config holds logger construction options.
type Config struct {
	// Development selects colored console output and debug level.
	Development bool
	// FilePath is the rotating JSON log file. Empty disables file output.
	FilePath string
	// Level overrides the level implied by Development when set.
	Level *zapcore.Level
	// File tunes rotation.
	File FileWriterConfig
}

// NewLogger creates a Logger writing to the console and to logFilePath
// with default rotation (100MB, 5 backups, 30 days, compressed).
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	return NewLoggerWithConfig(Config{
		Development: isDevelopment,
		FilePath:    logFilePath,
		File:        DefaultFileWriterConfig(),
	})
}

// NewLoggerWithConfig creates a Logger from cfg.
func NewLoggerWithConfig(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}
	if cfg.Level != nil {
		level = *cfg.Level
	}

	var file zapcore.WriteSyncer
	if cfg.FilePath != "" {
		f, err := NewFileWriterWithConfig(cfg.FilePath, cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file writer: %w", err)
		}
		file = f
	}

	core := NewTeeCore(level, zapcore.Lock(os.Stdout), file, cfg.Development)
	zl := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1), // skip this wrapper
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	return &Logger{
		zap:           zl,
		sugar:         zl.Sugar(),
		isDevelopment: cfg.Development,
		logFilePath:   cfg.FilePath,
	}, nil
}

// NewFromZap wraps an existing zap logger, e.g. one built on zaptest/observer.
func NewFromZap(z *zap.Logger) *Logger {
	z = z.WithOptions(zap.AddCallerSkip(1))
	return &Logger{zap: z, sugar: z.Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return NewFromZap(zap.NewNop())
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, redactFields(fields)...)
}

func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, redactKeysAndValues(keysAndValues)...)
}

func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, redactKeysAndValues(keysAndValues)...)
}

func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, redactKeysAndValues(keysAndValues)...)
}

func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, redactKeysAndValues(keysAndValues)...)
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	z := l.zap.With(redactFields(fields)...)
	return &Logger{zap: z, sugar: z.Sugar(), isDevelopment: l.isDevelopment, logFilePath: l.logFilePath}
}

// Named returns a child logger with name appended to the source key.
func (l *Logger) Named(name string) *Logger {
	z := l.zap.Named(name)
	return &Logger{zap: z, sugar: z.Sugar(), isDevelopment: l.isDevelopment, logFilePath: l.logFilePath}
}

// Zap exposes the underlying logger for libraries that need one.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func (l *Logger) IsDevelopment() bool {
	return l.isDevelopment
}

func (l *Logger) LogFilePath() string {
	return l.logFilePath
}

func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = redactField(f)
	}
	return out
}

func redactField(f zap.Field) zap.Field {
	if IsSensitiveField(f.Key) {
		return zap.String(f.Key, RedactedPlaceholder)
	}
	if f.Type == zapcore.StringType {
		if r := RedactSensitiveData(f.String); r != f.String {
			return zap.String(f.Key, r)
		}
	}
	return f
}

func redactKeysAndValues(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i < len(out)-1; i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		if IsSensitiveField(key) {
			out[i+1] = RedactedPlaceholder
			continue
		}
		if s, ok := out[i+1].(string); ok {
			out[i+1] = RedactSensitiveData(s)
		}
	}
	return out
}
