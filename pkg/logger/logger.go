package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Production uses JSON output, everything else the
// development console encoder. level is a zap level name such as "debug" or "info".
func New(environment, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
