// Package logging wraps uber-go/zap behind package-level helpers.
//
// The helpers accept either printf-style arguments or zap fields:
//
//	logging.Info("Ignoring push to %s", branch)
//	logging.Info("Outbound call finished", zap.Int("status", 200))
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logger configuration
type Config struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json or console
	File       string `yaml:"file"`   // optional; written in addition to stdout
	MaxSize    int    `yaml:"max_size"`
	MaxAge     int    `yaml:"max_age"`
	MaxBackups int    `yaml:"max_backups"`
}

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Init replaces the global logger using cfg
func Init(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		if cfg.MaxSize <= 0 {
			cfg.MaxSize = 100
		}
		if cfg.MaxAge <= 0 {
			cfg.MaxAge = 7
		}
		if cfg.MaxBackups <= 0 {
			cfg.MaxBackups = 5
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
		})
		cores = append(cores, zapcore.NewCore(fileEncoder, fileWriter, level))
	}

	SetLogger(zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	))
	return nil
}

// SetLogger swaps the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// L returns the global logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Sync flushes buffered log entries
func Sync() {
	_ = L().Sync()
}

func Debug(msg string, args ...interface{}) {
	m, fields := split(msg, args)
	L().Debug(m, fields...)
}

func Info(msg string, args ...interface{}) {
	m, fields := split(msg, args)
	L().Info(m, fields...)
}

func Warn(msg string, args ...interface{}) {
	m, fields := split(msg, args)
	L().Warn(m, fields...)
}

func Error(msg string, args ...interface{}) {
	m, fields := split(msg, args)
	L().Error(m, fields...)
}

// split separates zap fields from printf arguments and formats the message
func split(msg string, args []interface{}) (string, []zap.Field) {
	if len(args) == 0 {
		return msg, nil
	}

	var fields []zap.Field
	var formatArgs []interface{}
	for _, arg := range args {
		if f, ok := arg.(zap.Field); ok {
			fields = append(fields, f)
			continue
		}
		formatArgs = append(formatArgs, arg)
	}

	if len(formatArgs) > 0 {
		msg = fmt.Sprintf(msg, formatArgs...)
	}
	return msg, fields
}
