package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Debug controls whether debug logs are printed.
var Debug bool

var globalLogger = zap.NewNop()

// L returns the process-wide logger. It is a no-op logger until Init runs.
func L() *zap.Logger { return globalLogger }

// Options configures Init.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	File   string // optional path; empty logs to stdout only
}

// Init builds the global zap logger.
func Init(opts Options) error {
	level := parseLevel(opts.Level)
	if Debug {
		level = zapcore.DebugLevel
	}
	var enc zapcore.Encoder
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		enc = zapcore.NewJSONEncoder(jsonEncoderConfig())
	} else {
		enc = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), level)}
	if path := strings.TrimSpace(opts.File); path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(f), level))
	}

	globalLogger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return nil
}

// Set replaces the global logger. Tests use it with zaptest/observer loggers.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	globalLogger = l
}

// Debugf logs a formatted debug message when Debug is enabled.
func Debugf(format string, v ...any) {
	if Debug {
		globalLogger.Sugar().Debugf(format, v...)
	}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return cfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}
