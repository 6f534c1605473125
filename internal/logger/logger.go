package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// log is the process-wide zap logger. It starts as a no-op so packages that
// log before Initialize (and tests) never panic.
var log = zap.NewNop()

// Config holds logger configuration
type Config struct {
	Debug bool
	Level string
}

// Initialize builds the global logger. Debug selects the development encoder.
func Initialize(cfg Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Debug {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	l, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	log = l
	return log, nil
}

// Default returns the global logger
func Default() *zap.Logger {
	return log
}

// Named returns a child of the global logger for one component.
func Named(name string) *zap.Logger {
	return log.Named(name)
}

// Sync flushes buffered log entries
func Sync() {
	_ = log.Sync()
}
