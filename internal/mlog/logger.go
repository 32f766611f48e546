package mlog

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var l atomic.Pointer[zap.Logger]

func init() {
	lg, err := newLogger("info", "")
	if err != nil {
		lg = zap.NewNop()
	}
	l.Store(lg)
}

// L returns the process-wide logger.
func L() *zap.Logger {
	return l.Load()
}

// Init replaces the process-wide logger. An empty file logs to stderr.
func Init(level, file string) error {
	lg, err := newLogger(level, file)
	if err != nil {
		return err
	}
	old := l.Swap(lg)
	if old != nil {
		_ = old.Sync()
	}
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

func newLogger(level, file string) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevel()
	if len(level) > 0 {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	if len(file) > 0 {
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	} else {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	return cfg.Build()
}
